package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/hrdesk/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hrdesk.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	convey.Convey("When loading with no file and no overrides", t, func() {
		cfg, err := config.Load(context.Background())

		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
		convey.So(cfg.UpstreamBaseURL, convey.ShouldEqual, "http://localhost:8000")
		convey.So(cfg.DefaultPageSize, convey.ShouldEqual, 10)
	})
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("HRDESK_ADDR", ":8080")
	t.Setenv("HRDESK_UPSTREAM_BASE_URL", "https://hr.example.com")
	t.Setenv("HRDESK_WORKER_COUNT", "16")
	t.Setenv("HRDESK_OPTION_PAGE_SIZE", "50")

	convey.Convey("When environment variables are set", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then they override the defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.UpstreamBaseURL, convey.ShouldEqual, "https://hr.example.com")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
			convey.So(cfg.OptionPageSize, convey.ShouldEqual, 50)
		})
	})
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfigFile(t, `
addr: ":9090"
queue_size: 300
worker_count: 24
catalogs_file: /etc/hrdesk/catalogs.yaml
metrics_namespace: desk
metrics_labels:
  site: caracas
`)
	t.Setenv("HRDESK_CONFIG", path)
	t.Setenv("HRDESK_WORKER_COUNT", "32")
	t.Setenv("HRDESK_METRICS_ENABLED", "false")

	convey.Convey("When both a file and env vars are present", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then env wins over the file and the file over defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
			convey.So(cfg.CatalogsFile, convey.ShouldEqual, "/etc/hrdesk/catalogs.yaml")
			convey.So(cfg.DefaultPageSize, convey.ShouldEqual, 10)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "desk")
			convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"site": "caracas"})
			convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
		})
	})
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Setenv("HRDESK_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))

	convey.Convey("When the file is not valid YAML", t, func() {
		cfg, err := config.Load(context.Background())

		convey.So(cfg, convey.ShouldBeNil)
		convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
	})
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("HRDESK_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	convey.Convey("When the file does not exist", t, func() {
		_, err := config.Load(context.Background())
		convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
	})
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("HRDESK_QUEUE_SIZE", "not_a_number")

	convey.Convey("When a numeric override does not parse", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(cfg, convey.ShouldBeNil)
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestLoad_Validation(t *testing.T) {
	convey.Convey("Given invalid values", t, func() {
		cases := []string{
			`addr: ""`,
			`upstream_base_url: "/api"`,
			`upstream_base_url: "ftp://files"`,
			`default_page_size: 0`,
			`option_cache_ttl_ms: -1`,
			`worker_count: 0`,
		}
		for _, content := range cases {
			t.Setenv("HRDESK_CONFIG", writeConfigFile(t, content))
			cfg, err := config.Load(context.Background())

			convey.So(cfg, convey.ShouldBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})
}
