package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"cedra_shop_sync/internal/models"
)

const (
	productIndex = "products"
	searchSize   = 1000
)

var ErrSearchDisabled = errors.New("client Elasticsearch non initialisé")

// SearchIndex indexe le catalogue dans Elasticsearch pour la recherche texte.
// Un SearchIndex nil (ou sans client) est désactivé : l'indexation est ignorée, la recherche échoue.
type SearchIndex struct {
	client *elasticsearch.Client
}

func NewSearchIndex(client *elasticsearch.Client) *SearchIndex {
	if client == nil {
		return nil
	}
	return &SearchIndex{client: client}
}

func (s *SearchIndex) enabled() bool {
	return s != nil && s.client != nil
}

// searchDoc ne garde que les champs utiles à la recherche.
type searchDoc struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Code        string `json:"code"`
}

// Index ajoute ou remplace le produit dans l'index. Les erreurs sont journalisées.
func (s *SearchIndex) Index(ctx context.Context, p models.Product) {
	if !s.enabled() {
		return
	}

	data, _ := json.Marshal(searchDoc{Title: p.Title, Description: p.Description, Category: p.Category, Code: p.Code})
	req := esapi.IndexRequest{
		Index:      productIndex,
		DocumentID: p.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true", // rend la donnée immédiatement visible
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		log.Println("❌ Erreur envoi Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour %s: %s", p.Title, res.String())
		return
	}
	log.Printf("✅ Produit indexé dans Elasticsearch: %s", p.Title)
}

func (s *SearchIndex) Delete(ctx context.Context, id string) {
	if !s.enabled() {
		return
	}

	req := esapi.DeleteRequest{Index: productIndex, DocumentID: id, Refresh: "true"}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		log.Println("❌ Erreur suppression Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		log.Printf("⚠️ Elastic a refusé la suppression de %s: %s", id, res.String())
	}
}

// Search renvoie les ids des produits dont le titre, la description ou la catégorie correspondent.
func (s *SearchIndex) Search(ctx context.Context, text string) ([]string, error) {
	if !s.enabled() {
		return nil, ErrSearchDisabled
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"_source": false,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"type":   "phrase_prefix",
				"fields": []string{"title", "description", "category"},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("encodage requête: %w", err)
	}

	size := searchSize
	req := esapi.SearchRequest{
		Index: []string{productIndex},
		Body:  &buf,
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("réponse Elastic: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("décodage JSON: %w", err)
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
