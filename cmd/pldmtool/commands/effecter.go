package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openbmc-go/pldmd/internal/cli/prompt"
	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/wire"
)

var effecterCmd = &cobra.Command{
	Use:   "effecter",
	Short: "Inspect and drive effecters",
}

var effecterSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for the effecter-mapping config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := effecter.Schema()
		if err != nil {
			return fmt.Errorf("pldmtool: generate schema: %w", err)
		}
		cmd.Println(string(schema))
		return nil
	},
}

var effecterValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate an effecter-mapping config file against the schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := effecter.LoadFile(args[0])
		if err != nil {
			return fmt.Errorf("pldmtool: %w", err)
		}
		cmd.Printf("ok: %d effecter configuration(s)\n", len(file.Effecters))
		return nil
	},
}

var (
	setNumericEffecterID uint16
	setNumericDataSize   uint8
	setNumericRaw        int64
	setNumericForce      bool
)

var effecterSetNumericCmd = &cobra.Command{
	Use:   "set-numeric",
	Short: "Send SetNumericEffecterValue to the target terminus",
	Long: `Encodes and sends SetNumericEffecterValue directly, bypassing PDR
resolution and unit conversion. The value given via --raw is the raw wire
value already at the PDR's resolution/offset, for manual bench testing
rather than host-facing automation (that path goes through pldmd's own
internal/effecter.Writer instead).`,
	RunE: runEffecterSetNumeric,
}

func init() {
	effecterCmd.AddCommand(effecterSchemaCmd)
	effecterCmd.AddCommand(effecterValidateCmd)
	effecterCmd.AddCommand(effecterSetNumericCmd)

	effecterSetNumericCmd.Flags().Uint16Var(&setNumericEffecterID, "effecter-id", 0, "target effecter id")
	effecterSetNumericCmd.Flags().Uint8Var(&setNumericDataSize, "data-size", 4, "DSP0248 Table 34 data size (0=u8,1=s8,2=u16,3=s16,4=u32,5=s32)")
	effecterSetNumericCmd.Flags().Int64Var(&setNumericRaw, "raw", 0, "raw effecter value to write")
	effecterSetNumericCmd.Flags().BoolVarP(&setNumericForce, "force", "f", false, "skip the confirmation prompt")
	_ = effecterSetNumericCmd.MarkFlagRequired("effecter-id")
}

func runEffecterSetNumeric(cmd *cobra.Command, args []string) error {
	label := fmt.Sprintf("write raw value %d to effecter %d on EID %d", setNumericRaw, setNumericEffecterID, targetEID)
	ok, err := prompt.ConfirmWithForce(label, setNumericForce)
	if err != nil {
		return fmt.Errorf("pldmtool: %w", err)
	}
	if !ok {
		cmd.Println("aborted")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	engine, cleanup, err := dialEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	reqBody, err := wire.EncodeSetNumericEffecterValueReq(setNumericEffecterID, setNumericDataSize, setNumericRaw)
	if err != nil {
		return fmt.Errorf("pldmtool: encode SetNumericEffecterValue: %w", err)
	}

	instanceID, err := engine.Ids().Next(targetEID)
	if err != nil {
		return fmt.Errorf("pldmtool: reserve instance id: %w", err)
	}
	req, err := wire.EncodeRequest(instanceID, wire.TypePlatform, wire.CmdSetNumericEffecterValue, reqBody)
	if err != nil {
		engine.Ids().Free(targetEID, instanceID)
		return fmt.Errorf("pldmtool: encode request: %w", err)
	}

	resp, err := engine.SendRecv(ctx, targetEID, req)
	if err != nil {
		return fmt.Errorf("pldmtool: SetNumericEffecterValue: %w", err)
	}
	_, cc, _, err := wire.SplitResponse(resp)
	if err != nil {
		return fmt.Errorf("pldmtool: decode response: %w", err)
	}
	if cc != wire.Success {
		return fmt.Errorf("pldmtool: SetNumericEffecterValue completion code %s", wire.CompletionCodeName(cc))
	}
	cmd.Println("ok")
	return nil
}
