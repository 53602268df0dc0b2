package database

import (
	"fmt"
	"log"

	"github.com/gocql/gocql"
)

// Requêtes CQL partagées par le store.
const (
	CQLSelectProduct = `SELECT product_id, title, description, code, price, stock, status, category, thumbnails, created_at, updated_at
		FROM products WHERE product_id = ?`
	CQLSelectAllProducts = `SELECT product_id, title, description, code, price, stock, status, category, thumbnails, created_at, updated_at
		FROM products`
	CQLProductExists = `SELECT product_id FROM products WHERE product_id = ?`
	CQLInsertProduct = `INSERT INTO products (product_id, title, description, code, price, stock, status, category, thumbnails, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	CQLDeleteProduct = `DELETE FROM products WHERE product_id = ?`

	CQLClaimCode   = `INSERT INTO products_by_code (code, product_id) VALUES (?, ?) IF NOT EXISTS`
	CQLReleaseCode = `DELETE FROM products_by_code WHERE code = ? IF product_id = ?`

	CQLSelectCart = `SELECT cart_id, products, created_at, updated_at FROM carts WHERE cart_id = ?`
	CQLInsertCart = `INSERT INTO carts (cart_id, products, created_at, updated_at) VALUES (?, ?, ?, ?)`
	CQLUpdateCart = `UPDATE carts SET products = ?, updated_at = ? WHERE cart_id = ?`
	CQLDeleteCart = `DELETE FROM carts WHERE cart_id = ? IF EXISTS`
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		product_id uuid PRIMARY KEY,
		title text,
		description text,
		code text,
		price double,
		stock int,
		status boolean,
		category text,
		thumbnails list<text>,
		created_at timestamp,
		updated_at timestamp
	)`,
	// Unicité du code produit via transaction légère (IF NOT EXISTS)
	`CREATE TABLE IF NOT EXISTS products_by_code (
		code text PRIMARY KEY,
		product_id uuid
	)`,
	// Les lignes du panier sont stockées en JSON, comme les items des commandes
	`CREATE TABLE IF NOT EXISTS carts (
		cart_id uuid PRIMARY KEY,
		products text,
		created_at timestamp,
		updated_at timestamp
	)`,
}

// EnsureKeyspace crée le keyspace s'il n'existe pas (réplication simple, adaptée au dev).
func EnsureKeyspace(session *gocql.Session, keyspace string) error {
	stmt := fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, keyspace)
	if err := session.Query(stmt).Exec(); err != nil {
		return fmt.Errorf("création keyspace %s: %w", keyspace, err)
	}
	return nil
}

// EnsureSchema crée les tables manquantes.
func EnsureSchema(session *gocql.Session) error {
	for _, stmt := range schema {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("création schéma: %w", err)
		}
	}
	log.Println("✅ Schéma ScyllaDB vérifié")
	return nil
}
