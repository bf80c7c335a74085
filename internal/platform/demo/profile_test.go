package demo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfile_FillsDefaults(t *testing.T) {
	p, err := ParseProfile([]byte("patients: 3\nseed: 99\n"))
	require.NoError(t, err)

	d := DefaultProfile()
	assert.Equal(t, 3, p.Patients)
	assert.Equal(t, int64(99), p.Seed)
	assert.Equal(t, d.Days, p.Days)
	assert.Equal(t, d.MealsPerDay, p.MealsPerDay)
	assert.Equal(t, d.WeightMin, p.WeightMin)
	assert.Equal(t, d.WeightMax, p.WeightMax)
}

func TestParseProfile_Invalid(t *testing.T) {
	cases := map[string]string{
		"too many patients": "patients: 500\n",
		"too many meals":    "meals_per_day: 9\n",
		"inverted weights":  "start_weight_min: 90\nstart_weight_max: 60\n",
		"not yaml":          "patients: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfile([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	doc := "patients: 4\ndays: 30\nmeals_per_day: 5\nstart_weight_min: 70\nstart_weight_max: 80\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Patients)
	assert.Equal(t, 30, p.Days)
	assert.Equal(t, 5, p.MealsPerDay)
	assert.Equal(t, 70.0, p.WeightMin)
	assert.Equal(t, 80.0, p.WeightMax)
}

func TestLoadProfile_Missing(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
