// Package ccid maps audio contexts to Content Control IDs.
//
// A content control service (a media player, a telephone bearer) registers
// the CCID it uses for one or more context bits. When a stream is enabled
// the CCIDs of its metadata context are written into the ASE metadata so
// that the peer knows which service controls the content.
package ccid
