// Package drivers contains instrument drivers grouped by equipment
// family. Drivers are thin SCPI formatting layers over
// resource.Resource: they validate enumerated options, format command
// text and parse responses, with no internal state machine.
//
// RegisterAll installs every driver in a virtual.Catalog and a
// collection.Registry so bench configs can reference them by
// "family.Model" name.
package drivers
