// Package scada polls the Rapid SCADA web server for realtime channel
// data.
//
// The server is an ASP.NET WebForms application: login means echoing the
// __VIEWSTATE machinery back with the credentials, and the JSON API only
// answers once the session has "warmed" the relevant view. Channel
// numbers are resolved to stations via the stationmap tables.
package scada
