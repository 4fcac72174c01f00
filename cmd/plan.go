package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/internal/i18n"
)

var planOutput string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: i18n.T("cmd.plan.short"),
	Long:  i18n.T("cmd.plan.long"),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildServices()
		if err != nil {
			return err
		}

		req, err := assembleRequest(cmd, s)
		if err != nil {
			return err
		}

		plan, err := s.orch.Planner().BuildPlan(req)
		if err != nil {
			return err
		}

		if planOutput != "text" {
			data, err := marshalOutput(plan, planOutput)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("%s\n", i18n.T("cmd.plan.title", map[string]interface{}{
			"root": s.layout.Root,
		}))
		fmt.Printf("%s\n\n", i18n.T("cmd.plan.request", map[string]interface{}{
			"api":     req.APILevel,
			"variant": req.Variant,
			"abi":     req.ABI,
			"ndk":     req.NDK.String(),
		}))

		steps := plan.NeededSteps()
		if len(steps) == 0 {
			fmt.Printf("%s\n", i18n.T("cmd.plan.nothing"))
		} else {
			fmt.Printf("%s\n", i18n.T("cmd.plan.stepsTitle", map[string]interface{}{
				"count": len(steps),
			}))
			for _, step := range steps {
				fmt.Printf("   + %s\n", step)
			}
			fmt.Printf("\n%s\n", i18n.T("cmd.plan.estimate", map[string]interface{}{
				"size": plan.EstimatedMB,
			}))
		}

		if req.AVDName != "" {
			fmt.Printf("%s\n", i18n.T("cmd.plan.avd", map[string]interface{}{
				"name": req.AVDName,
			}))
		}
		if plan.NDKPath != "" {
			fmt.Printf("%s\n", i18n.T("cmd.plan.ndkPresent", map[string]interface{}{
				"path": plan.NDKPath,
			}))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	addRequestFlags(planCmd)
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "text", i18n.T("flags.output"))
}

// marshalOutput renders v as json or yaml. YAML goes through a JSON
// round-trip so both formats share the json tag names.
func marshalOutput(v interface{}, format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(v, "", "  ")
	case "yaml":
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil, err
		}
		return yaml.Marshal(generic)
	default:
		return nil, sdkerrors.NewInvalidArgumentError("BAD_OUTPUT_FORMAT",
			fmt.Sprintf("unsupported output format '%s'", format)).
			WithSuggestion("Use one of: text, json, yaml")
	}
}
