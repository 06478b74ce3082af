// Package mediatypes provides shared type definitions and content
// classification for media handled by the transcoding service.
//
// This package exists as a dependency-free foundation that can be imported
// by other packages without creating import cycles. It contains the sniffed
// media kinds, byte-signature classification (including the fake-HEIC case
// where a JPEG payload hides inside a HEIF container), MIME helpers, and
// the dimension normalizer shared by the client and server encode paths.
//
// # Classification
//
// Use Sniff to classify a file from its leading bytes and declared MIME:
//
//	kind := mediatypes.Sniff(head, declaredMIME)
//
//	switch kind {
//	case mediatypes.KindJPEGInHEIF:
//	    // Passthrough: relabel as JPEG, no transcode needed
//	case mediatypes.KindImage:
//	    // Run the bounded image pipeline
//	case mediatypes.KindVideo:
//	    // Hand off to the server transcoder
//	}
//
// The declared MIME type is untrusted: it is consulted only when no byte
// signature matches.
//
// # Dimension normalization
//
// Fit computes target dimensions preserving aspect ratio with the long
// edge capped, never upscaling:
//
//	target := mediatypes.Fit(mediatypes.Dimensions{Width: 6000, Height: 4000}, 1920)
package mediatypes
