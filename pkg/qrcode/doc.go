// Package qrcode renders pairing challenges as PNG images.
//
// The messaging client hands the supervisor a raw challenge string; the
// front-end needs something it can display. Renderer.DataURL produces a
// base64 data URL that is sent to the owning connection in the qr event.
//
//	r := qrcode.NewRenderer(qrcode.WithSize(320))
//	img, err := r.DataURL(challenge)
//
// Encoding is done by github.com/skip2/go-qrcode.
package qrcode
