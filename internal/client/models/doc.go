// Package models defines the client-side data model of agrisync: the
// locally stored DiagnosisRecord, the Advice variant it carries, and the
// RemoteDiagnosis wire shape reported by the remote authority.
package models
