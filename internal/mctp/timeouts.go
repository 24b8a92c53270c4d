package mctp

import "time"

// Default and command-class timeouts (spec §4.2 "Timeouts").
const (
	DefaultTimeout      = 2 * time.Second
	FirmwareDataTimeout = 90 * time.Second   // UA_T2
	StateChangeTimeout  = 1800 * time.Second // UA_T3
)

// commandFWUpdate / commandStateChange identify the commands that get a
// longer timeout than the 2s default. Type/command values per spec §6.3;
// RequestFirmwareData is PLDM_FWUP command 0x15, state-change commands are
// the firmware-update activation/apply set (0x0A ActivateFirmware,
// 0x11 ApplyComponent) that can legitimately block on a reboot.
const (
	typeFWUpdate            uint8 = 5
	cmdRequestFirmwareData  uint8 = 0x15
	cmdActivateFirmware     uint8 = 0x0A
	cmdApplyComponentUpdate uint8 = 0x11
)

// TimeoutFor returns the per-command timeout to apply to an outstanding
// request of the given PLDM type/command (spec §4.2).
func TimeoutFor(pldmType, command uint8) time.Duration {
	if pldmType != typeFWUpdate {
		return DefaultTimeout
	}
	switch command {
	case cmdRequestFirmwareData:
		return FirmwareDataTimeout
	case cmdActivateFirmware, cmdApplyComponentUpdate:
		return StateChangeTimeout
	default:
		return DefaultTimeout
	}
}
