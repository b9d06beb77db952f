// Package tva scrapes the environmental monitoring portal (TVA).
//
// The portal has no data API: readings are rendered server-side into the
// dashboard HTML behind a form login. Each fetch performs the full login
// dance — the session cookies it issues are not worth persisting at a
// 5-minute poll interval — and parses the station segments out of the
// landing page.
package tva
