// Package frame builds and recognises the four JSON frames of a verification
// run.
//
// Wire shapes (all byte fields base64url without padding):
//
//	{"type":"commit","sessionId":S,"roomId":R,"algs":{...},"commitment":C,"recv":{"id":..,"vk":..}}
//	{"type":"offer","sessionId":S,"msgS":M,"nonceS":N}
//	{"type":"reveal","sessionId":S,"msgR":M,"nonceR":N}
//	{"type":"rcvconfirm","sessionId":S}
//
// The "recv" hint on commit is optional. Decode rejects unknown types, missing
// required fields, undecodable byte fields and nonces shorter than 16 bytes.
package frame
