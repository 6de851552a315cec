package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/kidquest/internal/skillgraph"
	"github.com/abhisek/kidquest/internal/ui/theme"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage the skill catalog",
}

var skillImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import or update skills from a YAML catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()

		incoming, err := skillgraph.LoadCatalog(f)
		if err != nil {
			return err
		}

		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		existing, err := s.SkillRepo().ListSkills(ctx)
		if err != nil {
			return fmt.Errorf("list skills: %w", err)
		}

		// The merged catalog must stay consistent: prerequisites of the
		// new file may point at skills imported earlier.
		merged := mergeSkills(existing, incoming)
		if _, err := skillgraph.NewGraph(merged); err != nil {
			return fmt.Errorf("catalog conflicts with stored skills: %w", err)
		}

		for _, sk := range incoming {
			if err := s.SkillRepo().UpsertSkill(ctx, sk); err != nil {
				return fmt.Errorf("upsert %s: %w", sk.ID, err)
			}
		}
		fmt.Printf("Imported %d skills (%d total)\n", len(incoming), len(merged))
		return nil
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills grouped by domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")

		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		skills, err := s.SkillRepo().ListSkills(context.Background())
		if err != nil {
			return fmt.Errorf("list skills: %w", err)
		}
		if len(skills) == 0 {
			fmt.Println("No skills yet. Import a catalog with `kidquest skill import <file>`.")
			return nil
		}

		g, err := skillgraph.NewGraph(skills)
		if err != nil {
			return fmt.Errorf("stored catalog is invalid: %w", err)
		}

		domains := g.Domains()
		if domain != "" {
			if len(g.Domain(domain)) == 0 {
				return fmt.Errorf("no skills found for domain %q", domain)
			}
			domains = []string{domain}
		}

		for _, d := range domains {
			fmt.Println(theme.Title.Render(d))
			fmt.Printf("%s  %s  %s  %s  %s\n",
				theme.Pad(theme.Header.Render("#"), 4),
				theme.Pad(theme.Header.Render("ID"), 28),
				theme.Pad(theme.Header.Render("Difficulty"), 10),
				theme.Pad(theme.Header.Render("Status"), 10),
				theme.Header.Render("Next"))
			fmt.Println(theme.Separator(76))
			for _, sk := range g.Domain(d) {
				status := theme.Good.Render(string(sk.Status))
				if !sk.Published() {
					status = theme.Dim.Render(string(sk.Status))
				}
				next := theme.Dim.Render("(domain end)")
				if n, ok := g.NextInDomain(sk.ID); ok {
					next = n.ID
				}
				fmt.Printf("%-4d  %-28s  %-10d  %s  %s\n",
					sk.SortOrder, truncate(sk.ID, 28), sk.Difficulty, theme.Pad(status, 10), next)
			}
			fmt.Println()
		}

		fmt.Printf("%d skills\n", len(skills))
		return nil
	},
}

// mergeSkills overlays incoming on existing by ID, keeping first-seen order.
func mergeSkills(existing, incoming []skillgraph.Skill) []skillgraph.Skill {
	idx := make(map[string]int, len(existing)+len(incoming))
	out := make([]skillgraph.Skill, 0, len(existing)+len(incoming))
	for _, list := range [][]skillgraph.Skill{existing, incoming} {
		for _, sk := range list {
			if i, ok := idx[sk.ID]; ok {
				out[i] = sk
				continue
			}
			idx[sk.ID] = len(out)
			out = append(out, sk)
		}
	}
	return out
}

func init() {
	skillListCmd.Flags().String("domain", "", "Only list one domain")

	skillCmd.AddCommand(skillImportCmd)
	skillCmd.AddCommand(skillListCmd)
}
