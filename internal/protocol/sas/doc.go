// Package sas derives the short authentication string both humans compare.
//
// # Derivation
//
//  1. fullHash = SHA3-256(transcript), where
//     transcript = LP(label) || LP(roomId) || LP(sessionId) || LP(commitment)
//     || LP(msgS) || LP(nonceS) || LP(msgR) || LP(nonceR).
//  2. Two 32-bit big-endian samples are read from SHAKE128(fullHash).
//  3. With M = 10^digits and MAX = floor(2^32/M)*M, the first sample below
//     MAX gives the code (sample mod M), zero-padded to digits characters.
//  4. If both samples are rejected (probability about 2^-32 for six digits)
//     the first sample mod M is used. That branch carries the modulo bias
//     rejection sampling otherwise avoids; it is kept as-is so that every
//     implementation of the protocol agrees on the code.
//
// Any difference in either peer's view of the transcript changes the code with
// overwhelming probability; a mismatch is the human's signal of tampering.
package sas
