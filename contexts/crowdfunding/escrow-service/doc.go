// Package escrowservice holds crowd-funded campaigns whose donations sit in
// escrow until contributors approve a disbursement by strict majority.
//
// Domain and application code reach storage, clocks and metrics only through
// ports; adapters and platform wiring are composed here and in bootstrap.
package escrowservice
