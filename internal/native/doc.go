// Package native wraps the gogpu/wgpu HAL: backend instances, adapter
// selection, and a per-device arena of GPU objects addressed by typed IDs.
//
// An ID encodes the epoch of the device that issued it together with a
// sequence number. Destroying a device ends its epoch, after which every
// ID it issued is rejected with ErrStale rather than touching freed HAL
// objects.
package native
