// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/review-engine/pkg/types"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage review projects",
	Long: `Create and inspect review projects. A project carries the PICO
criteria (population, intervention, comparison, outcomes) that every
screening decision is judged against.`,
}

// --- create subcommand ---

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a review project",
	Example: `  review-engine project create --name "Metformin Review" \
    --population "adults with type 2 diabetes" \
    --intervention "metformin" --comparison "placebo" \
    --outcomes "HbA1c change"`,
	RunE: runProjectCreate,
}

// --- criteria subcommand ---

var projectCriteriaCmd = &cobra.Command{
	Use:   "criteria <project-id>",
	Short: "Update a project's screening criteria",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectCriteria,
}

// --- list subcommand ---

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review projects",
	RunE:  runProjectList,
}

// --- show subcommand ---

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show one project with its criteria and screening progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

func init() {
	projectCreateCmd.Flags().String("name", "", "project name (required)")
	projectCreateCmd.Flags().String("question", "", "research question")
	addCriteriaFlags(projectCreateCmd)
	projectCreateCmd.MarkFlagRequired("name")

	addCriteriaFlags(projectCriteriaCmd)

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectCriteriaCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	rootCmd.AddCommand(projectCmd)
}

func addCriteriaFlags(cmd *cobra.Command) {
	cmd.Flags().String("file", "", "YAML file holding the screening protocol")
	cmd.Flags().String("population", "", "PICO population")
	cmd.Flags().String("intervention", "", "PICO intervention")
	cmd.Flags().String("comparison", "", "PICO comparison")
	cmd.Flags().String("outcomes", "", "PICO outcomes")
	cmd.Flags().StringSlice("include", nil, "additional inclusion criterion (repeatable)")
	cmd.Flags().StringSlice("exclude", nil, "additional exclusion criterion (repeatable)")
}

// criteriaFromFlags assembles the screening protocol from the --file
// protocol (when given) overlaid with any explicit flags.
func criteriaFromFlags(cmd *cobra.Command) (*criteriaFile, error) {
	population, _ := cmd.Flags().GetString("population")
	intervention, _ := cmd.Flags().GetString("intervention")
	comparison, _ := cmd.Flags().GetString("comparison")
	outcomes, _ := cmd.Flags().GetString("outcomes")
	inclusion, _ := cmd.Flags().GetStringSlice("include")
	exclusion, _ := cmd.Flags().GetStringSlice("exclude")

	cf := &criteriaFile{}
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		loaded, err := loadCriteriaFile(path)
		if err != nil {
			return nil, err
		}
		cf = loaded
	}
	mergeCriteriaFlags(cf, types.PICOCriteria{
		Population:   population,
		Intervention: intervention,
		Comparison:   comparison,
		Outcomes:     outcomes,
	}, inclusion, exclusion)
	return cf, nil
}

// parseID converts a positional project or article ID argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", arg)
	}
	return id, nil
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	name, _ := cmd.Flags().GetString("name")
	question, _ := cmd.Flags().GetString("question")
	cf, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}
	if question == "" {
		question = cf.ResearchQuestion
	}

	id, err := st.CreateProject(cmd.Context(), &types.Project{
		Name:              name,
		ResearchQuestion:  question,
		Criteria:          cf.Criteria,
		InclusionCriteria: cf.Inclusion,
		ExclusionCriteria: cf.Exclusion,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created project %d: %s\n", id, name)
	if !cf.Criteria.IsComplete() {
		fmt.Println("Note: PICO criteria are incomplete; screening requires all four fields.")
		fmt.Printf("Set them with: review-engine project criteria %d\n", id)
	}
	return nil
}

func runProjectCriteria(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	cf, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := st.UpdateProjectCriteria(cmd.Context(), id, cf.Criteria, cf.Inclusion, cf.Exclusion); err != nil {
		return err
	}

	fmt.Printf("Updated criteria for project %d\n", id)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	projects, err := st.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects. Create one with: review-engine project create --name <name>")
		return nil
	}

	for _, p := range projects {
		fmt.Printf("%-4d %-40s created %s\n", p.ID, p.Name, p.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := st.GetProject(cmd.Context(), id)
	if err != nil {
		return err
	}
	stats, err := st.ProjectScreeningStats(cmd.Context(), id)
	if err != nil {
		return err
	}
	extracted, err := st.CountExtracted(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Printf("Project %d: %s\n", p.ID, p.Name)
	if p.ResearchQuestion != "" {
		fmt.Println("Question:    ", p.ResearchQuestion)
	}
	fmt.Println("Population:  ", p.Criteria.Population)
	fmt.Println("Intervention:", p.Criteria.Intervention)
	fmt.Println("Comparison:  ", p.Criteria.Comparison)
	fmt.Println("Outcomes:    ", p.Criteria.Outcomes)
	for _, c := range p.InclusionCriteria {
		fmt.Println("Include:     ", c)
	}
	for _, c := range p.ExclusionCriteria {
		fmt.Println("Exclude:     ", c)
	}
	fmt.Printf("Articles:     %d total, %d included, %d excluded, %d pending, %d extracted\n",
		stats.Total, stats.Included, stats.Excluded, stats.Pending, extracted)
	return nil
}
