package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	AppEnv string

	Scylla ScyllaConfig
	Redis  RedisConfig

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string

	MinIO MinIOConfig

	CORSOrigins    []string
	CartRateLimit  int
	PublishTimeout time.Duration
}

type ScyllaConfig struct {
	Hosts    []string
	Keyspace string
	Username string
	Password string
	Timeout  time.Duration
	NumConns int
}

type RedisConfig struct {
	Host     string
	Password string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() Config {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}

	return FromEnv()
}

// FromEnv construit la configuration sans toucher au fichier .env.
func FromEnv() Config {
	return Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "dev"),
		Scylla: ScyllaConfig{
			Hosts:    splitList(getEnv("SCYLLA_HOSTS", "127.0.0.1")),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "shop"),
			Username: os.Getenv("SCYLLA_USERNAME"),
			Password: os.Getenv("SCYLLA_PASSWORD"),
			Timeout:  time.Duration(getEnvInt("SCYLLA_TIMEOUT_MS", 5000)) * time.Millisecond,
			NumConns: getEnvInt("SCYLLA_NUM_CONNS", 20),
		},
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "product-thumbnails"),
			UseSSL:    strings.ToLower(os.Getenv("MINIO_USE_SSL")) == "true",
		},
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		CartRateLimit:  getEnvInt("CART_RATE_LIMIT", 20),
		PublishTimeout: time.Duration(getEnvInt("PUBLISH_TIMEOUT_MS", 500)) * time.Millisecond,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %d utilisée", key, v, def)
		return def
	}
	return n
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
