package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/kidquest/internal/contentgen"
	"github.com/abhisek/kidquest/internal/store"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Manage students",
}

var studentAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Create or update a student profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		language, _ := cmd.Flags().GetString("language")
		method, _ := cmd.Flags().GetString("method")

		stu := store.Student{
			ID:          args[0],
			DisplayName: name,
			Language:    language,
			Method:      method,
		}
		if cmd.Flags().Changed("age") {
			age, _ := cmd.Flags().GetInt("age")
			stu.Age = &age
		}

		switch contentgen.Method(method) {
		case "", contentgen.MethodPlayful, contentgen.MethodMontessori, contentgen.MethodClassic:
		default:
			return fmt.Errorf("unknown method %q (playful, montessori or classic)", method)
		}

		s, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if stu.Age != nil {
			eng := cfg.Engine
			if *stu.Age < eng.MinAge || *stu.Age > eng.MaxAge {
				fmt.Printf("Note: age %d is outside %d-%d; exercises will target age %d.\n",
					*stu.Age, eng.MinAge, eng.MaxAge, eng.ClampAge(stu.Age))
			}
		}

		if err := s.StudentRepo().UpsertStudent(context.Background(), stu); err != nil {
			return fmt.Errorf("save student: %w", err)
		}
		fmt.Printf("Saved student %s\n", stu.ID)
		return nil
	},
}

func init() {
	studentAddCmd.Flags().String("name", "", "Display name")
	studentAddCmd.Flags().Int("age", 0, "Age in years")
	studentAddCmd.Flags().String("language", "", "Content language (e.g. fr, en)")
	studentAddCmd.Flags().String("method", "", "Pedagogical method: playful, montessori or classic")

	studentCmd.AddCommand(studentAddCmd)
}
