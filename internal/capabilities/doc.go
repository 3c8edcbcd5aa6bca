// Package capabilities maps OGC WMS, WFS and CSW capabilities documents onto a
// typed model that can be edited and serialized back to XML.
//
// A document is parsed once, edited through the methods of its aggregates and
// written out with Serialize. The element tree read from the source is kept, so
// content the model does not cover survives a round trip.
package capabilities
