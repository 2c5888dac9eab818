package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateArithmetic(t *testing.T) {
	deadline := MustParseDate("2024-02-28")

	assert.Equal(t, MustParseDate("2024-02-29"), deadline.AddDays(1))
	assert.Equal(t, MustParseDate("2024-03-01"), deadline.AddDays(2))
	assert.Equal(t, 2, deadline.DaysUntil(MustParseDate("2024-03-01")))
	assert.Equal(t, -1, deadline.DaysUntil(MustParseDate("2024-02-27")))
	assert.True(t, deadline.Before(deadline.AddDays(1)))
	assert.False(t, deadline.After(deadline))
	assert.Equal(t, time.Wednesday, deadline.Weekday())
}

func TestDateOfUsesLocation(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	instant := time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, MustParseDate("2024-01-10"), DateOf(instant, time.UTC))
	assert.Equal(t, MustParseDate("2024-01-11"), DateOf(instant, manila))
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Deadline Date  `json:"deadline"`
		Date     *Date `json:"submission_date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"deadline":"2024-01-10","submission_date":null}`), &payload))
	assert.Equal(t, MustParseDate("2024-01-10"), payload.Deadline)
	assert.Nil(t, payload.Date)

	out, err := json.Marshal(payload.Deadline)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-10"`, string(out))

	out, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	var bad Date
	assert.Error(t, json.Unmarshal([]byte(`"10/01/2024"`), &bad))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-06", d.String())

	require.NoError(t, d.Scan([]byte("2024-05-07T00:00:00Z")))
	assert.Equal(t, "2024-05-07", d.String())

	assert.Error(t, d.Scan(42))
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	token := RefreshToken{ExpiresAt: now.Add(time.Hour)}

	assert.True(t, token.Usable(now))
	assert.False(t, token.Usable(now.Add(time.Hour)))
	token.Revoked = true
	assert.False(t, token.Usable(now))
}

func TestUserBelongsToSchool(t *testing.T) {
	user := User{Role: RoleSchool, SchoolNames: []string{"North High"}}

	assert.True(t, user.BelongsToSchool("North High"))
	assert.False(t, user.BelongsToSchool("South High"))
	user.Role = RoleModerator
	assert.False(t, user.BelongsToSchool("North High"))
}
