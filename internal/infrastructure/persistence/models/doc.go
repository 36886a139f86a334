// Package models contains GORM persistence models for the storefront's relational store.
// Domain types in sourcing and pricing carry no ORM tags; each model here maps one table
// and converts to and from its domain type with ToDomain / FromDomain.
//
// Tables:
//   - suppliers: marketplace stores, unique by external_id
//   - product_sources: one source-tracking row per imported listing, unique by source_product_id
//   - catalog_products, product_variants, inventory_items: rows created per import
//   - category_pricing: per-category pricing rules
package models
