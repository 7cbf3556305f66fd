// Package device holds the static catalog of known controllers and the
// capability resolver.
//
// Each Descriptor names a device, the number of physical control and button
// slots it has, and a capability map. A capability is either fixed
// (true/false) or gated on a minimum firmware version:
//
//	capabilities:
//	  led: true
//	  highResolution: "2.1.0"
//
// HasCapability evaluates one entry for a given firmware version; Resolve
// evaluates the full set into a model.Capabilities value.
//
// The built-in catalog is embedded from catalog.yaml. LoadCatalog reads a
// user-supplied catalog in the same format.
package device
