package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsEmpty(c.input), "IsEmpty(%q)", c.input)
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B",
		uuid.Must(uuid.NewV7()).String(),
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000", // v1
		uuid.NewString(),                       // v4
		"0188d0f2-7b8c-7b4a-cb2b-6b8b8b8b8b8b", // wrong variant
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"{0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b}",
		"urn:uuid:0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"",
	}
	for _, s := range valid {
		assert.True(t, IsValidUUID(s), "IsValidUUID(%q)", s)
	}
	for _, s := range invalid {
		assert.False(t, IsValidUUID(s), "IsValidUUID(%q)", s)
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31", "2024-02-29"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", "2023-02-29", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		assert.True(t, ok, "IsValidDate(%q)", s)
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		assert.False(t, ok, "IsValidDate(%q)", s)
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"CLOCKED_IN", "ON_BREAK", "CLOCKED_OUT"}
	assert.True(t, IsInSlice("ON_BREAK", slice))
	assert.False(t, IsInSlice("on_break", slice))
	assert.False(t, IsInSlice("", nil))
}

func TestCoordinates(t *testing.T) {
	cases := []struct {
		lat, lng          float64
		wantLat, wantLong bool
	}{
		{0, 0, true, true},
		{-90, 180, true, true},
		{90, -180, true, true},
		{90.0001, 10, false, true},
		{-6.2, -180.5, true, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.wantLat, IsValidLatitude(c.lat), "IsValidLatitude(%v)", c.lat)
		assert.Equal(t, c.wantLong, IsValidLongitude(c.lng), "IsValidLongitude(%v)", c.lng)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	errs.Add("latitude", "invalid")
	errs.Add("page", "required")

	assert.Equal(t, "latitude: invalid; page: required", errs.Error())
}

func TestValidationErrors_Err(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.Err())

	errs.Add("limit", "too large")
	require.Error(t, errs.Err())
	assert.IsType(t, ValidationErrors{}, errs.Err())
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "start_date", Message: "invalid"},
		{Field: "status", Message: "required"},
	}

	assert.Equal(t, map[string]string{"start_date": "invalid", "status": "required"}, errs.ToMap())
}
