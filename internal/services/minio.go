package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const signedURLExpiry = 15 * time.Minute

var ErrThumbnailsDisabled = errors.New("MinIO non initialisé")

// ThumbnailStore range les miniatures produit dans un bucket MinIO.
// Les miniatures sont référencées dans le produit par "s3://<bucket>/<clé>" et signées à la lecture.
type ThumbnailStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewThumbnailStore(client *minio.Client, bucket string) *ThumbnailStore {
	if client == nil {
		return nil
	}
	return &ThumbnailStore{client: client, bucket: bucket, expiry: signedURLExpiry}
}

func (t *ThumbnailStore) enabled() bool {
	return t != nil && t.client != nil
}

func (t *ThumbnailStore) prefix() string {
	return "s3://" + t.bucket + "/"
}

// Upload envoie le fichier et renvoie sa référence à stocker dans Product.Thumbnails.
func (t *ThumbnailStore) Upload(ctx context.Context, productID, filename, contentType string, r io.Reader, size int64) (string, error) {
	if !t.enabled() {
		return "", ErrThumbnailsDisabled
	}

	key := productID + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	_, err := t.client.PutObject(ctx, t.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("envoi miniature %s: %w", filename, err)
	}
	return t.prefix() + key, nil
}

// Sign remplace les références du bucket par des URLs signées. Les autres entrées sont gardées telles quelles.
func (t *ThumbnailStore) Sign(ctx context.Context, thumbnails []string) []string {
	if !t.enabled() || len(thumbnails) == 0 {
		return thumbnails
	}

	out := make([]string, len(thumbnails))
	for i, ref := range thumbnails {
		out[i] = ref
		key, ok := strings.CutPrefix(ref, t.prefix())
		if !ok {
			continue
		}
		signed, err := t.client.PresignedGetObject(ctx, t.bucket, key, t.expiry, make(url.Values))
		if err != nil {
			continue
		}
		out[i] = signed.String()
	}
	return out
}
