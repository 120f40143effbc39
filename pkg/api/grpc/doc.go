// Package grpc serves the standard gRPC health checking protocol so that
// orchestrators can probe the service without going through HTTP.
package grpc
