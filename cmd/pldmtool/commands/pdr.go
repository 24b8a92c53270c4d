package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/openbmc-go/pldmd/internal/cli/output"
	"github.com/openbmc-go/pldmd/internal/pdr"
	"github.com/openbmc-go/pldmd/internal/wire"
)

var pdrCmd = &cobra.Command{
	Use:   "pdr",
	Short: "Inspect a terminus's PDR repository",
}

var pdrListCmd = &cobra.Command{
	Use:   "list",
	Short: "Walk and print every PDR the target terminus reports",
	RunE:  runPDRList,
}

func init() {
	pdrCmd.AddCommand(pdrListCmd)
}

func runPDRList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	engine, cleanup, err := dialEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	table := output.NewTableData("HANDLE", "TYPE", "SIZE")
	handle := uint32(0)
	for {
		instanceID, err := engine.Ids().Next(targetEID)
		if err != nil {
			return fmt.Errorf("pldmtool: reserve instance id: %w", err)
		}
		reqBody := wire.EncodeGetPDRReq(handle, 0, wire.TransferOpFlagGetFirstPart, 0xFFFF, 0)
		req, err := wire.EncodeRequest(instanceID, wire.TypePlatform, wire.CmdGetPDR, reqBody)
		if err != nil {
			engine.Ids().Free(targetEID, instanceID)
			return fmt.Errorf("pldmtool: encode GetPDR: %w", err)
		}

		resp, err := engine.SendRecv(ctx, targetEID, req)
		if err != nil {
			return fmt.Errorf("pldmtool: GetPDR(handle=%d): %w", handle, err)
		}
		_, cc, body, err := wire.SplitResponse(resp)
		if err != nil {
			return fmt.Errorf("pldmtool: decode GetPDR response: %w", err)
		}
		if cc != wire.Success {
			return fmt.Errorf("pldmtool: GetPDR(handle=%d) completion code %s", handle, wire.CompletionCodeName(cc))
		}

		parsed, err := wire.DecodeGetPDRResp(body)
		if err != nil {
			return fmt.Errorf("pldmtool: malformed GetPDR response: %w", err)
		}

		recHandle, typ, _, _, err := pdr.DecodeHeader(parsed.RecordData)
		if err != nil {
			return fmt.Errorf("pldmtool: malformed PDR record: %w", err)
		}
		table.AddRow(strconv.FormatUint(uint64(recHandle), 10), pdrTypeName(typ), strconv.Itoa(len(parsed.RecordData)-pdr.HeaderSize))

		if parsed.NextRecordHandle == 0 {
			break
		}
		handle = parsed.NextRecordHandle
	}

	return output.PrintTable(cmd.OutOrStdout(), table)
}

func pdrTypeName(typ pdr.Type) string {
	switch typ {
	case pdr.TypeTerminusLocator:
		return "TerminusLocator"
	case pdr.TypeStateSensor:
		return "StateSensor"
	case pdr.TypeNumericEffecter:
		return "NumericEffecter"
	case pdr.TypeStateEffecter:
		return "StateEffecter"
	case pdr.TypeEntityAssociation:
		return "EntityAssociation"
	case pdr.TypeFRURecordSet:
		return "FRURecordSet"
	default:
		return fmt.Sprintf("Type(%d)", uint8(typ))
	}
}
