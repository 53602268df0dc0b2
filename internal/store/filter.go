package store

import (
	"sort"
	"strings"

	"cedra_shop_sync/internal/models"
)

const (
	DefaultLimit = 10
	DefaultPage  = 1
	MaxLimit     = 100
)

// ProductFilter restreint le catalogue. Les champs nil/vides ne filtrent pas.
type ProductFilter struct {
	Category *string
	Status   *bool
	Text     string
	// IDs limite le résultat à ces produits (résultat de l'index de recherche). nil = pas de restriction.
	IDs []string
}

type ProductQuery struct {
	Filter ProductFilter
	Page   int
	Limit  int
	Sort   string // "asc" | "desc" | "" (par prix)
}

// ParseFilter traduit le paramètre ?query= :
//
//	category:<x>  catégorie exacte, insensible à la casse
//	status:<bool> produits actifs / inactifs
//	autre texte   recherche dans title, description et category
func ParseFilter(query string) ProductFilter {
	q := strings.TrimSpace(query)
	if q == "" {
		return ProductFilter{}
	}

	parts := strings.Split(q, ":")
	if len(parts) == 2 {
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		switch key {
		case "status":
			status := strings.ToLower(value) == "true"
			return ProductFilter{Status: &status}
		case "category":
			return ProductFilter{Category: &value}
		}
	}
	return ProductFilter{Text: q}
}

// Match indique si le produit satisfait le filtre.
func (f ProductFilter) Match(p models.Product) bool {
	if f.IDs != nil && !contains(f.IDs, p.ID) {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.Category != nil && !strings.EqualFold(p.Category, *f.Category) {
		return false
	}
	if f.Text != "" {
		text := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(p.Title), text) &&
			!strings.Contains(strings.ToLower(p.Description), text) &&
			!strings.Contains(strings.ToLower(p.Category), text) {
			return false
		}
	}
	return true
}

// Normalize remplace page/limit invalides par les valeurs par défaut. limit est plafonné à MaxLimit.
func (q ProductQuery) Normalize() ProductQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.Sort != "asc" && q.Sort != "desc" {
		q.Sort = ""
	}
	return q
}

// Paginate filtre, trie et découpe une liste complète de produits.
// Sans tri demandé, l'ordre d'insertion (created_at) est conservé.
func Paginate(all []models.Product, q ProductQuery) models.ProductPage {
	q = q.Normalize()

	matched := make([]models.Product, 0, len(all))
	for _, p := range all {
		if q.Filter.Match(p) {
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		switch q.Sort {
		case "asc":
			return matched[i].Price < matched[j].Price
		case "desc":
			return matched[i].Price > matched[j].Price
		default:
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
	})

	total := len(matched)
	totalPages := (total + q.Limit - 1) / q.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	page := models.ProductPage{
		Docs:        []models.Product{},
		TotalDocs:   total,
		Limit:       q.Limit,
		Page:        q.Page,
		TotalPages:  totalPages,
		HasPrevPage: q.Page > 1,
		HasNextPage: q.Page < totalPages,
	}
	if page.HasPrevPage {
		prev := q.Page - 1
		page.PrevPage = &prev
	}
	if page.HasNextPage {
		next := q.Page + 1
		page.NextPage = &next
	}

	// Au-delà de la dernière page : pas de multiplication, page vide
	if q.Page > totalPages {
		return page
	}
	start := (q.Page - 1) * q.Limit
	if start < total {
		end := start + q.Limit
		if end > total {
			end = total
		}
		page.Docs = append(page.Docs, matched[start:end]...)
	}
	return page
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
