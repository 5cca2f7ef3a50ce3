package models_test

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/models"
	"github.com/mmdatafocus/contacts_backend/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// useSqlite points config.GetDB() at a private in-memory database for the test.
func useSqlite(t *testing.T) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), config.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	prev := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() {
		config.SetDB(prev)
		_ = sqlDB.Close()
	})
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
}

func as(u *models.User) context.Context {
	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, u.ID)
	ctx = utils.SetUsernameInContext(ctx, u.Username)
	ctx = utils.SetUserNameInContext(ctx, u.Name)
	ctx = utils.SetUserRoleInContext(ctx, string(u.Role))
	return utils.SetIsAdminInContext(ctx, u.Role.IsAdmin())
}

func mustRegister(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := models.Register(context.Background(), &models.NewUser{
		Username: username,
		Name:     strings.ToUpper(username[:1]) + username[1:],
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return u
}

func mustSeedAdmin(t *testing.T) *models.User {
	t.Helper()
	u, _, err := models.SeedAdmin(context.Background(), &models.NewUser{
		Username: "admin",
		Name:     "Admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	return u
}

func mustCreatePerson(t *testing.T, ctx context.Context, name string) *models.Person {
	t.Helper()
	p, err := models.CreatePerson(ctx, &models.NewPerson{Name: name})
	if err != nil {
		t.Fatalf("CreatePerson(%s): %v", name, err)
	}
	return p
}

func mustFileReport(t *testing.T, ctx context.Context, personId int, week string) *models.Report {
	t.Helper()
	r, err := models.CreateReport(ctx, &models.NewReport{
		PersonId:   personId,
		ReportWeek: week,
		HasContact: utils.NewTrue(),
		Content:    "weekly call",
	})
	if err != nil {
		t.Fatalf("CreateReport(person=%d, week=%s): %v", personId, week, err)
	}
	return r
}

/* docker helpers for INTEGRATION_TESTS */

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("contacts-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=contacts_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent"); err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// e.g. "127.0.0.1:49154\n"
	m := regexp.MustCompile(`:(\d+)`).FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	b, err := exec.Command("docker", args...).CombinedOutput()
	return string(b), err
}
