package mapping

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draft() *Draft {
	return &Draft{Assignments: []Assignment{
		{Column: "lon", Role: RoleX, Confidence: 0.9, Source: SourceInferred},
		{Column: "lat", Role: RoleY, Confidence: 0.9, Source: SourceInferred},
		{Column: "alt", Role: RoleIgnore, Source: SourceInferred},
		{Column: "name", Role: RoleLabel, Confidence: 0.8, Source: SourceInferred},
	}}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"X", RoleX, false},
		{"y", RoleY, false},
		{" label ", RoleLabel, false},
		{"Layer", RoleLayer, false},
		{"ignore", RoleIgnore, false},
		{"W", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestConfirm_AcceptUnchanged(t *testing.T) {
	c, err := draft().Accept()
	require.NoError(t, err)

	x, _ := c.Column(RoleX)
	label, _ := c.Column(RoleLabel)
	_, hasZ := c.Column(RoleZ)
	assert.Equal(t, "lon", x)
	assert.Equal(t, "name", label)
	assert.False(t, hasZ)
	assert.Len(t, c.Assignments(), 4)
}

func TestConfirm_OverrideDisplacesRole(t *testing.T) {
	d := draft()

	c, err := d.Confirm(map[string]Role{"alt": RoleX})
	require.NoError(t, err)

	x, _ := c.Column(RoleX)
	assert.Equal(t, "alt", x)
	for _, a := range c.Assignments() {
		if a.Column == "lon" {
			assert.Equal(t, RoleIgnore, a.Role)
		}
		if a.Column == "alt" {
			assert.Equal(t, SourceOverride, a.Source)
			assert.Equal(t, 1.0, a.Confidence)
		}
	}

	// The draft is not mutated.
	role, _ := d.Role("lon")
	assert.Equal(t, RoleX, role)
}

func TestConfirm_SwapAxes(t *testing.T) {
	c, err := draft().Confirm(map[string]Role{"lon": RoleY, "lat": RoleX})
	require.NoError(t, err)

	x, _ := c.Column(RoleX)
	y, _ := c.Column(RoleY)
	assert.Equal(t, "lat", x)
	assert.Equal(t, "lon", y)
}

func TestConfirm_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]Role
		rule      string
	}{
		{"unknown column", map[string]Role{"nope": RoleX}, RuleOverride},
		{"unknown role", map[string]Role{"alt": Role("W")}, RuleOverride},
		{"two overrides claim X", map[string]Role{"alt": RoleX, "name": RoleX}, RuleUniqueness},
		{"Y removed", map[string]Role{"lat": RoleIgnore}, RuleRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := draft().Confirm(tt.overrides)

			var nv *NoViableMappingError
			require.True(t, errors.As(err, &nv), "err = %v", err)
			assert.Equal(t, tt.rule, nv.Rule)
		})
	}
}

func TestConfirmed_ConsumedOnce(t *testing.T) {
	c, err := draft().Accept()
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Consume() == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.ErrorIs(t, c.Consume(), ErrConsumed)
}
