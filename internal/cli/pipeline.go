package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/domain"
)

// NewPipelineCmd создаёт группу команд для управления пайплайнами.
func NewPipelineCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Manage analytics pipelines",
	}

	cmd.AddCommand(
		newPipelineCreateCmd(clientFn, outputFn),
		newPipelineStartCmd(clientFn, outputFn),
		newPipelinePauseCmd(clientFn, outputFn),
		newPipelineResumeCmd(clientFn, outputFn),
		newPipelineCancelCmd(clientFn, outputFn),
		newPipelineDecideCmd(clientFn, outputFn),
		newPipelineCleanupCmd(clientFn, outputFn),
		newPipelineStatusCmd(clientFn, outputFn),
		newPipelineListCmd(clientFn, outputFn),
	)

	return cmd
}

func newPipelineCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var stages []string
	var dependencies []string
	var resources []string
	var allowFallback bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			content := map[string]any{}

			if len(stages) > 0 {
				content["stage_sequence"] = stages
			}

			if len(dependencies) > 0 {
				deps := make(map[string][]string, len(dependencies))
				for _, kv := range dependencies {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid dependency format %q, expected STAGE=DEP1,DEP2", kv)
					}
					deps[parts[0]] = strings.Split(parts[1], ",")
				}
				content["stage_dependencies"] = deps
			}

			if len(resources) > 0 {
				reqs := make(map[string]any, len(resources))
				for _, kv := range resources {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid resource format %q, expected TYPE=VALUE", kv)
					}
					reqs[parts[0]] = parts[1]
				}
				content["resource_requirements"] = reqs
			}

			if allowFallback {
				content["allow_sequence_fallback"] = true
			}

			pipelineID, err := client.SendCommand(cmd.Context(), bus.TypePipelineCreateRequest, uuid.Nil, content)
			if err != nil {
				return err
			}

			out.Success("Pipeline create requested")
			out.Print(
				[]string{"PIPELINE_ID"},
				[][]string{{pipelineID.String()}},
				map[string]string{"pipeline_id": pipelineID.String()},
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&stages, "stage", nil, "Custom stage sequence (repeatable, in order)")
	cmd.Flags().StringSliceVar(&dependencies, "dependency", nil, "Stage dependency as STAGE=DEP1,DEP2 (repeatable)")
	cmd.Flags().StringSliceVar(&resources, "resource", nil, "Resource requirement as TYPE=VALUE (repeatable)")
	cmd.Flags().BoolVar(&allowFallback, "allow-sequence-fallback", false, "Fall back to the default sequence if the custom one is invalid")

	return cmd
}

func newPipelineStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return newCommandCmd(clientFn, outputFn, commandSpec{
		use:     "start PIPELINE_ID",
		short:   "Start pipeline execution",
		msgType: bus.TypePipelineStartRequest,
		success: "Pipeline start requested",
	})
}

func newPipelinePauseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return newCommandCmd(clientFn, outputFn, commandSpec{
		use:        "pause PIPELINE_ID",
		short:      "Pause a running pipeline",
		msgType:    bus.TypePipelinePauseRequest,
		success:    "Pipeline pause requested",
		withReason: true,
	})
}

func newPipelineResumeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return newCommandCmd(clientFn, outputFn, commandSpec{
		use:     "resume PIPELINE_ID",
		short:   "Resume a paused pipeline",
		msgType: bus.TypePipelineResumeRequest,
		success: "Pipeline resume requested",
	})
}

func newPipelineCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return newCommandCmd(clientFn, outputFn, commandSpec{
		use:        "cancel PIPELINE_ID",
		short:      "Cancel a pipeline",
		msgType:    bus.TypePipelineCancelRequest,
		success:    "Pipeline cancel requested",
		withReason: true,
	})
}

func newPipelineCleanupCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return newCommandCmd(clientFn, outputFn, commandSpec{
		use:     "cleanup PIPELINE_ID",
		short:   "Remove a finished pipeline from the registry",
		msgType: bus.TypePipelineCleanupRequest,
		success: "Pipeline cleanup requested",
	})
}

func newPipelineDecideCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var results string

	cmd := &cobra.Command{
		Use:   "decide PIPELINE_ID OPTION",
		Short: "Resolve a pending decision gate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			pipelineID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid pipeline id %q: %w", args[0], err)
			}

			content := map[string]any{"option": args[1]}

			if results != "" {
				var parsed map[string]any
				if err := json.Unmarshal([]byte(results), &parsed); err != nil {
					return fmt.Errorf("invalid --results JSON: %w", err)
				}
				content["results"] = parsed
			}

			if _, err := client.SendCommand(cmd.Context(), bus.TypePipelineDecisionResolution, pipelineID, content); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Decision %q sent to pipeline %s", args[1], pipelineID))
			return nil
		},
	}

	cmd.Flags().StringVar(&results, "results", "", "Stage results JSON for custom_resolution")

	return cmd
}

func newPipelineStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status PIPELINE_ID",
		Short: "Show the latest pipeline snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			pipelineID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid pipeline id %q: %w", args[0], err)
			}

			snap, err := client.Status(cmd.Context(), pipelineID)
			if err != nil {
				return err
			}

			out.Print(
				snapshotHeaders,
				[][]string{snapshotRow(snap)},
				snap,
			)
			return nil
		},
	}
}

func newPipelineListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pipeline snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			snaps, err := client.List(cmd.Context(), status, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(snaps))
			for i := range snaps {
				rows[i] = snapshotRow(&snaps[i])
			}

			out.Print(snapshotHeaders, rows, snaps)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (RUNNING, PAUSED, AWAITING_DECISION, COMPLETED, CANCELLED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

// --- Helpers ---

// commandSpec описывает простую команду из одного сообщения.
type commandSpec struct {
	use        string
	short      string
	msgType    bus.MessageType
	success    string
	withReason bool
}

// newCommandCmd строит команду, публикующую одно сообщение пайплайну.
func newCommandCmd(clientFn func() *Client, outputFn func() *Output, spec commandSpec) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			pipelineID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid pipeline id %q: %w", args[0], err)
			}

			content := map[string]any{}
			if reason != "" {
				content["reason"] = reason
			}

			if _, err := client.SendCommand(cmd.Context(), spec.msgType, pipelineID, content); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("%s: %s", spec.success, pipelineID))
			return nil
		},
	}

	if spec.withReason {
		cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the pipeline state")
	}

	return cmd
}

var snapshotHeaders = []string{"PIPELINE_ID", "STATUS", "STAGE", "PROGRESS", "UPDATED"}

// snapshotRow строит строку таблицы из снимка.
func snapshotRow(snap *domain.Snapshot) []string {
	return []string{
		snap.PipelineID.String(),
		string(snap.Status),
		string(snap.CurrentStage),
		fmt.Sprintf("%.1f%%", snap.Progress),
		snap.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
