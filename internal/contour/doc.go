// Package contour turns a scattered set of per-mass-point fit results into
// exclusion contours.
//
// Responsibilities: sample deduplication, grid construction, radial basis
// function interpolation of each metric onto the grid, forbidden-region
// masking, and marching-squares extraction of closed contour polygons
// (single level curves and the uncertainty band between two curves).
// Key types: Config, Sample, Grid, Surface, Contour, Result.
//
// Everything here is a pure function of its inputs. There is no package
// state, so independent regions may be processed concurrently by the caller.
package contour
