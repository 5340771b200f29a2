// Package pki generates the certificate authority and domain-bound server
// certificate material the proxy serves with.
//
// An issuance run produces five artifacts under the issuer's output
// directory:
//
//	ca.key      CA private key
//	ca.crt      self-signed CA certificate
//	server.key  server private key
//	server.csr  certificate signing request for the configured domain
//	server.crt  server certificate signed by the CA
//
// All artifacts are written to a staging directory and renamed into place
// only after every one of them exists, so an interrupted run never leaves
// a partially-written or mismatched key/certificate pair observable to the
// service provisioner. Re-issuing over existing material is allowed and
// replaces the whole set.
package pki
