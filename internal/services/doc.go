// package services holds the clients for the two upstream APIs.
//
// SpotifyService reads playlists through the Web API using whichever
// credential flow the auth package provides. YouTubeService wraps the
// YouTube Data API v3 search endpoint behind a single Search call. Both
// clients translate upstream HTTP failures into the sentinel errors defined
// in the shared package so callers can branch on error identity rather than
// status codes.
package services
