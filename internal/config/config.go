package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string     `yaml:"env" env-default:"production"`
	PGSQL       PQSQL      `yaml:"pgsql"`
	HTTPServer  HTTPServer `yaml:"http_server"`
	JWTSecret   string     `yaml:"jwt_secret" env-default:"super_secret_key"`
	Redis       Redis      `yaml:"redis"`
	MinIO       MinIO      `yaml:"minio"`
	Media       Media      `yaml:"media"`
	Storage     Driver     `yaml:"storage"`
	ObjectStore Driver     `yaml:"object_store"`
	RateLimit   RateLimit  `yaml:"rate_limit"`
	Worker      Worker     `yaml:"worker"`
}

type HTTPServer struct {
	Address string `yaml:"address" env-default:"localhost:8080"`
}

type PQSQL struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-default:"postgres"`
	Password string `yaml:"password" env-default:"password"`
	DBName   string `yaml:"dbname" env-default:"stories_db"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"10m"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	UseSSL          bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
	BucketName      string `yaml:"bucket_name" env:"MINIO_BUCKET" env-default:"stories-media"`
	// PublicBaseURL replaces the endpoint/bucket prefix of media URLs, e.g. a CDN domain.
	PublicBaseURL string `yaml:"public_base_url" env:"MEDIA_PUBLIC_BASE_URL" env-default:""`
	// PreviewBaseURL points at an image proxy able to render a frame of a video object.
	PreviewBaseURL string `yaml:"preview_base_url" env:"MEDIA_PREVIEW_BASE_URL" env-default:""`
}

type Media struct {
	MaxImageSize       int64    `yaml:"max_image_size" env-default:"10485760"`
	MaxVideoSize       int64    `yaml:"max_video_size" env-default:"104857600"`
	AllowedImageTypes  []string `yaml:"allowed_image_types" env-default:"image/jpeg,image/png,image/webp,image/gif"`
	AllowedVideoTypes  []string `yaml:"allowed_video_types" env-default:"video/mp4,video/quicktime,video/webm"`
	FFmpegPath         string   `yaml:"ffmpeg_path" env:"FFMPEG_PATH" env-default:""`
	ThumbnailAtSeconds float64  `yaml:"thumbnail_at_seconds" env-default:"1"`
}

// Driver selects a backend implementation: "postgres"/"minio" or "memory".
type Driver struct {
	Driver string `yaml:"driver" env-default:""`
}

type RateLimit struct {
	StoriesPerMinute int64 `yaml:"stories_per_minute" env-default:"20"`
}

type Worker struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval" env-default:"15m"`
	OrphanGracePeriod time.Duration `yaml:"orphan_grace_period" env-default:"30m"`
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return cfg
}

// Load reads the YAML file at path and applies env overrides and defaults.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
