package models_test

import (
	"testing"
	"time"

	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/models"
	"github.com/mmdatafocus/contacts_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReport_Rules(t *testing.T) {
	useSqlite(t)
	admin := mustSeedAdmin(t)
	owner := mustRegister(t, "owner")
	other := mustRegister(t, "other")
	p := mustCreatePerson(t, as(owner), "Daw Mya")

	future := time.Now().UTC().AddDate(0, 0, 8).Format("2006-01-02")
	_, err := models.CreateReport(as(owner), &models.NewReport{PersonId: p.ID, ReportWeek: future, HasContact: utils.NewFalse()})
	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "notfuture", verr.Fields["ReportWeek"])

	_, err = models.CreateReport(as(owner), &models.NewReport{PersonId: p.ID, ReportWeek: "2024-01-01"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["HasContact"])

	_, err = models.CreateReport(as(other), &models.NewReport{PersonId: p.ID, ReportWeek: "2024-01-01", HasContact: utils.NewTrue()})
	assert.ErrorIs(t, err, utils.ErrorForbidden)

	_, err = models.CreateReport(as(owner), &models.NewReport{PersonId: p.ID + 50, ReportWeek: "2024-01-01", HasContact: utils.NewTrue()})
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)

	byAdmin := mustFileReport(t, as(admin), p.ID, "2024-01-03T10:00:00+06:30")
	assert.Equal(t, admin.ID, byAdmin.UserId)
	assert.True(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC).Equal(byAdmin.ReportWeek))

	today := mustFileReport(t, as(owner), p.ID, time.Now().UTC().Format("2006-01-02"))
	assert.Equal(t, owner.ID, today.UserId)
}

func TestUpdateAndDeleteReport_FilerOrAdmin(t *testing.T) {
	useSqlite(t)
	admin := mustSeedAdmin(t)
	owner := mustRegister(t, "owner")
	other := mustRegister(t, "other")
	p := mustCreatePerson(t, as(owner), "Ko Zaw")
	r := mustFileReport(t, as(owner), p.ID, "2024-02-05")

	content := "left a message"
	_, err := models.UpdateReport(as(other), r.ID, &models.UpdateReportInput{Content: &content})
	assert.ErrorIs(t, err, utils.ErrorForbidden)

	week := "2024-02-12"
	updated, err := models.UpdateReport(as(owner), r.ID, &models.UpdateReportInput{ReportWeek: &week, HasContact: utils.NewFalse()})
	require.NoError(t, err)
	assert.False(t, updated.HasContact)
	assert.Equal(t, "weekly call", updated.Content)

	var stored models.Report
	require.NoError(t, config.GetDB().First(&stored, r.ID).Error)
	assert.Equal(t, "2024-02-12", stored.ReportWeek.UTC().Format("2006-01-02"))
	assert.Equal(t, p.ID, stored.PersonId)

	_, err = models.DeleteReport(as(other), r.ID)
	assert.ErrorIs(t, err, utils.ErrorForbidden)
	_, err = models.DeleteReport(as(admin), r.ID)
	require.NoError(t, err)
	_, err = models.GetReport(as(owner), r.ID)
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestGetReport_PersonOwnerMayRead(t *testing.T) {
	useSqlite(t)
	admin := mustSeedAdmin(t)
	owner := mustRegister(t, "owner")
	other := mustRegister(t, "other")
	p := mustCreatePerson(t, as(owner), "Shared")
	r := mustFileReport(t, as(admin), p.ID, "2024-03-04")

	got, err := models.GetReport(as(owner), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = models.GetReport(as(other), r.ID)
	assert.ErrorIs(t, err, utils.ErrorForbidden)
}

func TestListReports_Scope(t *testing.T) {
	useSqlite(t)
	admin := mustSeedAdmin(t)
	a := mustRegister(t, "aye")
	b := mustRegister(t, "bo")
	pa := mustCreatePerson(t, as(a), "A1")
	pb := mustCreatePerson(t, as(b), "B1")
	mustFileReport(t, as(a), pa.ID, "2024-01-01")
	mustFileReport(t, as(a), pa.ID, "2024-01-08")
	mustFileReport(t, as(b), pb.ID, "2024-01-08")
	mustFileReport(t, as(admin), pa.ID, "2024-01-15")

	own, err := models.ListReports(as(a), nil)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	onPerson, err := models.ListReports(as(a), &models.ReportQuery{PersonId: &pa.ID})
	require.NoError(t, err)
	require.Len(t, onPerson, 3)
	assert.Equal(t, "2024-01-15", onPerson[0].ReportWeek.UTC().Format("2006-01-02"))

	_, err = models.ListReports(as(b), &models.ReportQuery{PersonId: &pa.ID})
	assert.ErrorIs(t, err, utils.ErrorForbidden)

	all, err := models.ListReports(as(admin), nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	ranged, err := models.ListReports(as(admin), &models.ReportQuery{From: "2024-01-08", To: "2024-01-08"})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	_, err = models.ListReports(as(admin), &models.ReportQuery{From: "last week"})
	assert.ErrorIs(t, err, utils.ErrorValidation)
}

func TestOrphanReportMaintenance(t *testing.T) {
	useSqlite(t)
	owner := mustRegister(t, "owner")
	ctx := as(owner)
	gone := mustCreatePerson(t, ctx, "Gone")
	kept := mustCreatePerson(t, ctx, "Kept")
	mustFileReport(t, ctx, gone.ID, "2024-01-01")
	mustFileReport(t, ctx, gone.ID, "2024-01-08")
	mustFileReport(t, ctx, kept.ID, "2024-01-08")

	// bypass the cascading delete to leave orphans behind
	require.NoError(t, config.GetDB().Delete(&models.Person{}, gone.ID).Error)

	count, err := models.CountOrphanReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	deleted, err := models.DeleteOrphanReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err = models.CountOrphanReports(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	remaining, err := models.ListReports(ctx, nil)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].PersonId)
}
