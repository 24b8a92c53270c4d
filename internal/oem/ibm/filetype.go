// Package ibm implements IBM's OEM PLDM file-transfer commands: dump, PEL,
// certificate, LID, VPD, PCIe topology, boot-progress SRC, and license-key
// exchange, all carried over the same NewFileAvailable/WriteFile/ReadFile/
// FileAck sequence and persisted to a Store (an S3-compatible blob store in
// production).
//
// Grounded on original_source/oem/ibm/libpldmresponder/file_io_type_*.{hpp,cpp}:
// the original gives each file type its own FileHandler subclass (DumpHandler,
// PelHandler, CertHandler, ...) differing only in where the bytes end up
// (NBD device, D-Bus property, flash partition). Here that's one Handler
// parameterized by FileType against a uniform Store, since every one of
// those destinations collapses to "persist these bytes, keyed by type and
// handle" once the original's BMC-local IPC is replaced by object storage.
package ibm

import "fmt"

// FileType selects which file-transfer channel a fileHandle belongs to
// (original_source's PLDM_FILE_TYPE_* enum).
type FileType uint16

const (
	FileTypeDump FileType = iota + 1
	FileTypePEL
	FileTypeCert
	FileTypeLID
	FileTypeVPD
	FileTypePCIeTopology
	FileTypeProgressSRC
	FileTypeLicense
)

func (t FileType) String() string {
	switch t {
	case FileTypeDump:
		return "dump"
	case FileTypePEL:
		return "pel"
	case FileTypeCert:
		return "cert"
	case FileTypeLID:
		return "lid"
	case FileTypeVPD:
		return "vpd"
	case FileTypePCIeTopology:
		return "pcie_topology"
	case FileTypeProgressSRC:
		return "progress_src"
	case FileTypeLicense:
		return "license"
	default:
		return fmt.Sprintf("filetype(%d)", uint16(t))
	}
}
