package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"

	"cedra_shop_sync/internal/config"
)

// Connections regroupe les clients ouverts au démarrage.
// Seul Scylla est obligatoire : Redis, Elastic et MinIO sont nil quand ils ne sont pas configurés.
type Connections struct {
	Scylla  *gocql.Session
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
	Bucket  string
}

// --- Initialisation ---
func Connect(ctx context.Context, cfg config.Config) (*Connections, error) {
	conns := &Connections{Bucket: cfg.MinIO.Bucket}

	// 1. ScyllaDB (obligatoire)
	session, err := connectScylla(cfg.Scylla)
	if err != nil {
		return nil, err
	}
	conns.Scylla = session

	// 2. Redis (pub/sub temps réel, cache, rate limit)
	if cfg.Redis.Host != "" {
		client, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			conns.Close()
			return nil, err
		}
		conns.Redis = client
	} else {
		log.Println("⚠️ REDIS_HOST non configuré, diffusion limitée à ce processus")
	}

	// 3. Elasticsearch (recherche produits)
	if cfg.ElasticURL != "" {
		client, err := connectElastic(cfg)
		if err != nil {
			log.Printf("⚠️ Elasticsearch indisponible, recherche en mémoire utilisée: %v", err)
		} else {
			conns.Elastic = client
		}
	}

	// 4. MinIO (miniatures produits)
	if cfg.MinIO.Endpoint != "" {
		client, err := connectMinIO(ctx, cfg.MinIO)
		if err != nil {
			log.Printf("⚠️ MinIO indisponible, upload de miniatures désactivé: %v", err)
		} else {
			conns.MinIO = client
		}
	}

	log.Println("✅ Connexions aux bases de données établies")
	return conns, nil
}

// Close ferme toutes les connexions ouvertes.
func (c *Connections) Close() {
	if c.Scylla != nil {
		c.Scylla.Close()
		log.Println("🔌 Session ScyllaDB fermée")
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("⚠️ Erreur fermeture Redis: %v", err)
		}
	}
}

// =============================================
// SCYLLA DB
// =============================================

func newCluster(cfg config.ScyllaConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.Timeout
	cluster.NumConns = cfg.NumConns
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

func connectScylla(cfg config.ScyllaConfig) (*gocql.Session, error) {
	// Le keyspace doit exister avant d'ouvrir la session définitive
	bootstrap, err := newCluster(cfg).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur connexion ScyllaDB: %w", err)
	}
	err = EnsureKeyspace(bootstrap, cfg.Keyspace)
	bootstrap.Close()
	if err != nil {
		return nil, err
	}

	cluster := newCluster(cfg)
	cluster.Keyspace = cfg.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", cfg.Keyspace, err)
	}

	if err := EnsureSchema(session); err != nil {
		session.Close()
		return nil, err
	}

	log.Printf("✅ Session ScyllaDB ouverte pour keyspace '%s'", cfg.Keyspace)
	return session, nil
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Host,
		Password:     cfg.Password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("impossible de se connecter à Redis: %w", err)
	}
	log.Println("✅ Connecté à Redis")
	return client, nil
}

// =============================================
// ELASTICSEARCH
// =============================================
func connectElastic(cfg config.Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("erreur création client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("erreur connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("réponse Elasticsearch: %s", res.Status())
	}

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================
func connectMinIO(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("erreur connexion MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("erreur vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("erreur création bucket MinIO: %w", err)
		}
		log.Println("🪣 Bucket créé :", cfg.Bucket)
	}

	log.Println("✅ Connecté à MinIO :", cfg.Endpoint)
	return client, nil
}
