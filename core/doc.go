// Package host embeds a conferencing engine view in a host application.
//
// An Activity owns the view for the lifetime of a host screen: it joins the
// conference named by its launch intent, routes the engine's notifications to
// handlers and tears everything down in a fixed order when destroyed.
package host
