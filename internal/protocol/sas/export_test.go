package sas

// FromSamples exposes the rejection-sampling step so tests can feed it fixed
// XOF output.
var FromSamples = fromSamples
