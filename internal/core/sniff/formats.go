// Copyright 2025 Oskar Olofsson
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file holds the container signatures and brand tables used for
// classification. The brand lists cover the containers phones actually
// produce, including iPhone HEVC recordings.
package sniff

// movBrands lists the ISO-BMFF brands classified as QuickTime MOV.
var movBrands = map[string]bool{
	"qt  ": true,
}

// mp4Brands lists the ISO-BMFF brands classified as MP4.
var mp4Brands = map[string]bool{
	// ISO base media
	"isom": true, "iso2": true, "iso3": true, "iso4": true,
	"iso5": true, "iso6": true,
	// MP4 versions
	"mp41": true, "mp42": true, "mp71": true,
	// H.264/AVC
	"avc1": true, "avc2": true, "avc3": true, "avc4": true,
	// H.265/HEVC (iPhone)
	"hvc1": true, "hev1": true, "hevc": true,
	// Apple M4V
	"M4V ": true, "M4VH": true, "M4VP": true,
	// Mobile MP4
	"mmp4": true,
	// Sony
	"MSNV": true,
	// MPEG-DASH
	"ndas": true, "ndsc": true, "ndsh": true, "ndsm": true,
	"ndsp": true, "ndss": true, "dash": true,
}

// ISO-BMFF signature: the ASCII bytes "ftyp" at offset 4, with the brand in
// the four bytes that follow. Files at or below minimum length are rejected
// outright.
const (
	isoBMFFOffset    = 4
	isoBMFFMinLength = 12
	brandOffset      = 8
	brandLength      = 4
)

// ftypSignature is the ISO-BMFF box marker.
var ftypSignature = []byte{0x66, 0x74, 0x79, 0x70} // "ftyp"

// webmSignature is the EBML magic at offset 0.
var webmSignature = []byte{0x1A, 0x45, 0xDF, 0xA3}

// webmMinLength is the minimum byte count for WebM detection.
const webmMinLength = 4
