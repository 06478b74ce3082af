// Package storage provides object storage access for source media and
// finished renditions. The S3 implementation targets S3-compatible
// services (including Cloudflare R2 via a custom endpoint); an in-memory
// implementation backs tests and local development.
package storage
