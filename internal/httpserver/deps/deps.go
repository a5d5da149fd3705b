package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TarouTanakaYokohama/tabbin/internal/category"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/migrate"
	"github.com/TarouTanakaYokohama/tabbin/internal/sources/keywords"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedHosts []string // Host headers allowed to access the server
	AllowedCIDRS []string // IPs allowed to access the API (empty = loopback-only via listen addr)
	TrustProxy   bool     // true if running behind a trusted reverse proxy

	RedisClient *redis.Client // Redis client connection, used for health reporting

	URLs       *store.URLStore      // canonical url records
	Groups     *store.GroupStore    // domain groups (saved tabs)
	Projects   *store.ProjectStore  // custom projects
	Settings   *store.SettingsStore // flat user settings document
	Categories *category.Service    // parent categories and sub-category labels
	Migrator   *migrate.Engine      // backup export/import and legacy migration

	GCTrigger    chan struct{}  // Channel to trigger a manual garbage collection pass
	KeywordPack  *keywords.Pack // Seed keyword rules by domain (nil if disabled)
	KeywordsFile string         // Path to the keyword rules file ("" = disabled)
}
