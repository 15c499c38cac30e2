// Package activity is a client for the repository activity REST API.
//
// A Connector authenticates a tenant and returns its User (a
// domain.Principal). A User resolves Repositories (domain.Source), whose
// Events stream is paged newest-first and stops requesting pages as soon
// as the consumer stops.
package activity
