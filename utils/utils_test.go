package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "unit-test-secret")

	token, err := JwtGenerate(42, "A", time.Hour)
	require.NoError(t, err)

	parsed, err := JwtValidate(token)
	require.NoError(t, err)
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	require.True(t, ok)
	assert.Equal(t, 42, claims.ID)
	assert.Equal(t, "A", claims.Role)

	t.Setenv("API_SECRET", "rotated")
	_, err = JwtValidate(token)
	assert.Error(t, err)
}

func TestJwtExpired(t *testing.T) {
	token, err := JwtGenerate(1, "S", -time.Minute)
	require.NoError(t, err)
	_, err = JwtValidate(token)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{" 2024-01-07 ", time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)},
		{"2024-01-08T02:00:00+06:30", time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)},
		{"2024-01-08T23:59:59Z", time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		require.NoError(t, err, tc.in)
		assert.True(t, tc.want.Equal(got), "ParseDate(%q) = %s", tc.in, got)
	}

	_, err := ParseDate("08/01/2024")
	assert.Error(t, err)
}

type validated struct {
	Week  string    `validate:"required,notfuture"`
	At    time.Time `validate:"notfuture"`
	Phone string    `validate:"omitempty,phone"`
}

func TestValidateStruct_CustomTags(t *testing.T) {
	t.Setenv("PHONE_REGION", "US")
	past := time.Now().Add(-time.Hour)

	assert.NoError(t, ValidateStruct(&validated{Week: "2024-01-01", At: past, Phone: "650-253-0000"}))
	assert.NoError(t, ValidateStruct(&validated{Week: time.Now().UTC().Format("2006-01-02"), At: past}))

	err := ValidateStruct(&validated{
		Week:  time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02"),
		At:    time.Now().Add(time.Hour),
		Phone: "123",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"Week": "notfuture", "At": "notfuture", "Phone": "phone"}, verr.Fields)

	err = ValidateStruct(&validated{Week: "not a date", At: past})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "notfuture", verr.Fields["Week"])
}

func TestValidationErrorIs(t *testing.T) {
	err := error(NewValidationError("name", "required"))
	assert.True(t, errors.Is(err, ErrorValidation))
	assert.False(t, errors.Is(err, ErrorForbidden))
	assert.EqualError(t, err, "validation failed")
}

func TestFormatPhoneNumber(t *testing.T) {
	assert.Equal(t, "+16502530000", FormatPhoneNumber("(650) 253-0000", "US"))
	assert.Equal(t, "not a phone", FormatPhoneNumber("not a phone", "US"))
}

func TestCallerFromContext(t *testing.T) {
	ctx := context.Background()
	_, ok := CallerId(ctx)
	assert.False(t, ok)
	assert.False(t, IsAdmin(ctx))

	ctx = SetUserIdInContext(ctx, 7)
	ctx = SetIsAdminInContext(ctx, true)
	id, ok := CallerId(ctx)
	assert.True(t, ok)
	assert.Equal(t, 7, id)
	assert.True(t, IsAdmin(ctx))
}

func TestUniqueSlice(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, UniqueSlice([]int{3, 1, 3, 2, 1}))
	assert.Empty(t, UniqueSlice([]int(nil)))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(string(hash), "secret123"))
	assert.Error(t, ComparePassword(string(hash), "secret124"))
}
