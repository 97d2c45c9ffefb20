package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Role
		wantErr bool
	}{
		{name: "hr", input: "HR", want: RoleHR},
		{name: "employee", input: "EMPLOYEE", want: RoleEmployee},
		{name: "lowercase rejected", input: "hr", wantErr: true},
		{name: "unknown rejected", input: "ADMIN", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_UnmarshalJSON_RejectsUnknown(t *testing.T) {
	var p Profile
	err := json.Unmarshal([]byte(`{"email":"a@b.c","role":"SUPERUSER"}`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestRole_RoundTrip(t *testing.T) {
	var p Profile
	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b.c","role":"EMPLOYEE"}`), &p))
	assert.Equal(t, RoleEmployee, p.Role)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"role":"EMPLOYEE"`)
}

func TestRole_MarshalRejectsZeroValue(t *testing.T) {
	_, err := json.Marshal(Profile{Email: "a@b.c"})
	assert.Error(t, err)
}
