// Package pacs decodes the Published Audio Capabilities Service
// characteristics a unicast client reads from each peer: PAC records, audio
// locations and the available and supported audio contexts.
package pacs
