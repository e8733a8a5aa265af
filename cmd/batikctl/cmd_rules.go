package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"batikcore/internal/core"
	"batikcore/internal/rulepack"
	"batikcore/pkg/domain"
)

var (
	rulesGoal       string
	ruleType        string
	rulePriority    int64
	ruleConditions  []string
	ruleConclusion  string
	ruleExplanation []string
	rulesExportPath string
	rulesImportPath string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the stored classification rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in evaluation order",
	RunE:  runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a rule",
	Long: `Adds a rule to the store. Conditions are key=value pairs with
boolean or integer values:

  batikctl rules add --type technique --priority 5 \
    --cond machine_like=true --cond wax_visible=false \
    --conclusion "Batik Print" \
    --why "Uniform machine pattern without wax residue"`,
	RunE: runRulesAdd,
}

var rulesUpdateCmd = &cobra.Command{
	Use:   "update [rule-id]",
	Short: "Update fields of an existing rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesUpdate,
}

var rulesRemoveCmd = &cobra.Command{
	Use:     "rm [rule-id]",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove a rule",
	Args:    cobra.ExactArgs(1),
	RunE:    runRulesRemove,
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export rules as a YAML pack",
	RunE:  runRulesExport,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import rules from a YAML pack",
	RunE:  runRulesImport,
}

func init() {
	rulesListCmd.Flags().StringVarP(&rulesGoal, "goal", "g", "", "restrict to one goal type (technique|quality)")

	for _, c := range []*cobra.Command{rulesAddCmd, rulesUpdateCmd} {
		c.Flags().StringVarP(&ruleType, "type", "t", "", "goal type (technique|quality)")
		c.Flags().Int64VarP(&rulePriority, "priority", "p", 0, "priority, lower evaluates first")
		c.Flags().StringArrayVarP(&ruleConditions, "cond", "c", nil, "condition as key=value (repeatable)")
		c.Flags().StringVar(&ruleConclusion, "conclusion", "", "conclusion label")
		c.Flags().StringArrayVar(&ruleExplanation, "why", nil, "explanation line (repeatable)")
	}

	rulesExportCmd.Flags().StringVarP(&rulesGoal, "goal", "g", "", "restrict to one goal type")
	rulesExportCmd.Flags().StringVarP(&rulesExportPath, "out", "o", "", "output file (default stdout)")
	rulesImportCmd.Flags().StringVarP(&rulesImportPath, "file", "f", "", "pack file to import (required)")
	_ = rulesImportCmd.MarkFlagRequired("file")

	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesUpdateCmd, rulesRemoveCmd, rulesExportCmd, rulesImportCmd)
}

func listRules(cmd *cobra.Command) ([]domain.Rule, error) {
	return service.Rules(cmd.Context(), core.GoalFilter(rulesGoal))
}

func runRulesList(cmd *cobra.Command, args []string) error {
	rules, err := listRules(cmd)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, rules)
	}
	if len(rules) == 0 {
		cmd.Println("no rules stored")
		return nil
	}
	for _, rule := range rules {
		cmd.Printf("%s  [%s p=%d]  %s\n", rule.ID, rule.Type, rule.Priority, rule.Conclusion)
		for _, key := range sortedConditionKeys(rule.Conditions) {
			cmd.Printf("    if %s == %s\n", key, rule.Conditions[key])
		}
	}
	return nil
}

func sortedConditionKeys(c domain.Conditions) []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	conditions, err := parseFacts(ruleConditions)
	if err != nil {
		return err
	}
	draft := domain.RuleDraft{
		Type:        domain.GoalType(ruleType),
		Priority:    rulePriority,
		Conditions:  domain.Conditions(conditions),
		Conclusion:  ruleConclusion,
		Explanation: ruleExplanation,
	}
	rule, err := service.AddRule(cmd.Context(), draft)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, rule)
	}
	cmd.Printf("added rule %s\n", rule.ID)
	return nil
}

func runRulesUpdate(cmd *cobra.Command, args []string) error {
	var patch domain.RulePatch
	if cmd.Flags().Changed("type") {
		t := domain.GoalType(ruleType)
		patch.Type = &t
	}
	if cmd.Flags().Changed("priority") {
		p := rulePriority
		patch.Priority = &p
	}
	if cmd.Flags().Changed("cond") {
		conditions, err := parseFacts(ruleConditions)
		if err != nil {
			return err
		}
		patch.Conditions = domain.Conditions(conditions)
	}
	if cmd.Flags().Changed("conclusion") {
		c := ruleConclusion
		patch.Conclusion = &c
	}
	if cmd.Flags().Changed("why") {
		patch.Explanation = ruleExplanation
	}

	rule, err := service.UpdateRule(cmd.Context(), args[0], patch)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, rule)
	}
	cmd.Printf("updated rule %s\n", rule.ID)
	return nil
}

func runRulesRemove(cmd *cobra.Command, args []string) error {
	if err := service.RemoveRule(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("removed rule %s\n", args[0])
	return nil
}

func runRulesExport(cmd *cobra.Command, args []string) error {
	rules, err := listRules(cmd)
	if err != nil {
		return err
	}
	data, err := rulepack.Encode(rules)
	if err != nil {
		return err
	}
	if rulesExportPath == "" {
		cmd.Print(string(data))
		return nil
	}
	if err := os.WriteFile(rulesExportPath, data, 0o644); err != nil {
		return fmt.Errorf("write pack: %w", err)
	}
	cmd.Printf("exported %d rules to %s\n", len(rules), rulesExportPath)
	return nil
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(rulesImportPath)
	if err != nil {
		return fmt.Errorf("read pack: %w", err)
	}
	pack, err := rulepack.Decode(data)
	if err != nil {
		return err
	}
	var added []string
	for _, draft := range pack.Rules {
		rule, err := service.AddRule(cmd.Context(), draft)
		if err != nil {
			return fmt.Errorf("import %q: %w", draft.Conclusion, err)
		}
		added = append(added, rule.ID)
	}
	cmd.Printf("imported %d rules: %s\n", len(added), strings.Join(added, ", "))
	return nil
}
