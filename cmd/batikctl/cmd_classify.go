package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"batikcore/internal/core"
	"batikcore/pkg/domain"
)

var (
	classifyFacts []string
	classifyGoal  string
	classifyMotif string
	classifyImage string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a batik sample from observed characteristics",
	Long: `Evaluates the stored rules against the supplied facts.

Facts are key=value pairs; values are booleans or integers:

  batikctl classify \
    --fact strokes_irregular=true \
    --fact wax_visible=true \
    --fact pattern_repeated=false \
    --fact defect_count=0

Without --goal both goal types are evaluated and the combined outcome
is appended to the classification history. With --goal technique or
--goal quality a single dry-run evaluation is performed and nothing is
recorded.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringArrayVarP(&classifyFacts, "fact", "f", nil, "observed characteristic as key=value (repeatable)")
	classifyCmd.Flags().StringVarP(&classifyGoal, "goal", "g", "", "evaluate a single goal type (technique|quality) without recording")
	classifyCmd.Flags().StringVarP(&classifyMotif, "motif", "m", "", "motif name recorded with the sample")
	classifyCmd.Flags().StringVarP(&classifyImage, "image", "i", "", "path to a sample image (png, jpg)")
}

// parseFacts converts key=value pairs into a validated fact set.
func parseFacts(pairs []string) (domain.FactSet, error) {
	values := make(map[string]domain.Value, len(pairs))
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("fact %q is not key=value", pair)
		}
		switch raw {
		case "true", "false":
			values[key] = domain.BoolValue(raw == "true")
		default:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("fact %q: value must be a boolean or an integer", pair)
			}
			values[key] = domain.IntValue(n)
		}
	}
	return domain.NewFactSet(values)
}

func runClassify(cmd *cobra.Command, args []string) error {
	facts, err := parseFacts(classifyFacts)
	if err != nil {
		return err
	}

	if classifyGoal != "" {
		goal, err := domain.ParseGoalType(classifyGoal)
		if err != nil {
			return err
		}
		result, err := service.Classify(cmd.Context(), goal, facts)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, result)
		}
		printResult(cmd, string(goal), result)
		return nil
	}

	input := core.SampleInput{Facts: facts, MotifName: classifyMotif}
	if classifyImage != "" {
		f, err := os.Open(classifyImage)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		input.ImageName = classifyImage
		input.Image = f
	}

	record, err := service.ClassifySample(cmd.Context(), input)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, record)
	}
	cmd.Printf("record %s\n", record.ID)
	if record.ImageKey != "" {
		cmd.Printf("image stored at %s\n", record.ImageKey)
	}
	printResult(cmd, "technique", record.Technique)
	printResult(cmd, "quality", record.Quality)
	return nil
}

func printResult(cmd *cobra.Command, goal string, result domain.ClassificationResult) {
	if !result.Matched {
		cmd.Printf("%s: no rule matched\n", goal)
		return
	}
	cmd.Printf("%s: %s (rule %s)\n", goal, result.Conclusion, result.RuleID)
	for _, line := range result.Explanation {
		cmd.Printf("  - %s\n", line)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
