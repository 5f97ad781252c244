// Package ltv implements the Length-Type-Value encoding used by the Bluetooth
// LE Audio profiles for Codec_Specific_Configuration, Codec_Specific_Capabilities
// and Metadata fields.
//
// Each structure is encoded as:
//
//	Length (1 octet) | Type (1 octet) | Value (Length-1 octets)
//
// where Length covers the Type octet and the Value. Multi-octet values are
// little-endian. A Length of zero is a padding entry and carries no type.
//
// See Bluetooth Assigned Numbers, Section 6.12 (Generic Audio LTV structures).
package ltv
