package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/parking-cli/internal/config"
)

const fixtureHeader = "tag_number_masked,date_of_infraction,infraction_code,infraction_description,set_fine_amount,time_of_infraction,location1,location2,location3,location4,province\n"

const fixtureCSV = fixtureHeader +
	"***01,20160101,5,PARK-SIGNED HWY-PROHIBIT,30,930,NR,HWY 2,,,ON\n" +
	"***02,20160101,5,PARK-SIGNED HWY-PROHIBIT,30,1415,NR,HWY 2,,,ON\n" +
	"***03,20160102,9,STOP-SIGNED HWY-PROHIBIT,60,,AT,MAIN ST,,,QC\n"

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickets.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// testConfig mirrors the defaults config.Load installs.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Source.Delimiter = ","
	c.Source.UserAgent = "parking-cli/1.0"
	c.Source.TimeoutSecs = 5
	c.Source.MaxRetries = 1
	c.Source.RequestsPerSec = 100
	c.Normalize.RepairMissingCode = true
	c.Aggregate.TopN = 10
	c.Aggregate.Workers = 1
	c.Histogram.Column = "time_of_infraction"
	c.Histogram.Max = 2400
	c.Histogram.Buckets = 24
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "runs.db")
	c.Server.Port = 8080
	c.Server.CORSOrigins = []string{"*"}
	c.Log.Level = "info"
	c.Log.Format = "json"
	return c
}
