// Package types provides the host-side data model shared by the runner,
// the bridges and the CLI.
//
// The host owns these records. The sandbox never drops members it does not
// understand: every model that may carry host-only metadata keeps the
// undeclared JSON members in an Extra map and writes them back on encode.
//
// Core Types:
//   - RequestContext: the flat bag exchanged with the host bridge
//   - Request, RequestBody, RequestHeader: persisted request shape
//   - Settings, ClientCertificate, CookieJar: persisted settings the merge writes
//   - Response: host response record with an on-disk body
//   - RequestTestResult: one test() / skip() record
//
// Bridge Types:
//   - RunScriptRequest: HTTP bridge payload
//   - WSMessage: websocket bridge frame
package types
