// Package gopager provides offset pagination with metadata and navigation
// links over relational datasets.
//
// Overview
//
// A list request (Request: limit, page, order, search term) is turned into a
// bounded page of a dataset ordered by created_at, together with PageMeta and
// absolute PageLinks pointing back at the requesting endpoint.
//
// Two modes are supported:
//   - Paginate: pages of typed entities.
//   - PaginateWithRawMerge: pages of typed entities with server-computed
//     columns (aggregates, joined values) of the raw query rows merged onto
//     them, correlated by primary key.
//
// Key concepts
//   - Query: an immutable query builder implemented once per data access
//     library. The gormq package implements it for gorm.
//   - KeyDescriptor: where the primary key lives on entities and raw rows,
//     and how it is canonicalized (CanonicalKey).
//   - DNF: filters in disjunctive normal form, used for equality filters and
//     free-text search (SearchSpec).
//   - Bounds: the normalized limit, page and offset of a request. Paging input
//     is never an error, it is clamped.
package gopager
