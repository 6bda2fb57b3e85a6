// Package colormath holds the numeric side of color management: transfer
// functions, primaries and white points, RGB/XYZ/LMS matrices, YCbCr
// decoding, tone and gamut mapping, cone-deficiency simulation and 3D LUTs.
//
// All linear-light values are relative to the reference white, so 1.0 is
// SDR white and HDR signals extend above it. The enumerations mirror the
// public color enums of the root package value for value.
package colormath
