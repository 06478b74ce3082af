// Package handlers implements the HTTP surface of the transcoding
// service: the health endpoint, the transcode and image job endpoints,
// and media record lookups with signed download URLs.
//
// Response shapes are a hard external contract; every body is JSON with
// an ok boolean on job routes, and HTTP status communicates category
// (400 client error, 500 processing error).
package handlers
