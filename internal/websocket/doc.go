// Package websocket pushes workflow progress to browsers.
//
// The Hub fans out events.WebSocketMessage envelopes: workflow:step for
// every step status change and workflow:completed or workflow:failed when a
// run ends. A client may send {"type":"subscribe","result_id":"..."} or
// connect with ?result_id= to receive only the events of that result.
package websocket
