package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vedsharma/apiplay/internal/environment"
	"github.com/vedsharma/apiplay/internal/format"
)

var envName string

func init() {
	envCmd := &cobra.Command{
		Use:     "env",
		Aliases: []string{"environment"},
		Short:   "Manage environments and their variables",
		Long: `Manage environments. Variables of the active environment replace
{{name}} placeholders in URLs, headers and bodies when requests are sent,
exported or turned into code.

Example:
  apiplay env create Staging
  apiplay env use staging
  apiplay env set baseUrl https://staging.example.com
  apiplay get '{{baseUrl}}/users'`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all environments",
		Run:   runEnvList,
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new environment",
		Args:  cobra.ExactArgs(1),
		Run:   runEnvCreate,
	}

	showCmd := &cobra.Command{
		Use:   "show [env]",
		Short: "Show an environment's variables (default: active)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runEnvShow,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <env>",
		Short: "Delete an environment",
		Args:  cobra.ExactArgs(1),
		Run:   runEnvDelete,
	}

	useCmd := &cobra.Command{
		Use:   "use <env>",
		Short: "Set the active environment",
		Args:  cobra.ExactArgs(1),
		Run:   runEnvUse,
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a variable",
		Args:  cobra.ExactArgs(2),
		Run:   runEnvSet,
	}
	setCmd.Flags().StringVarP(&envID, "env", "e", "", "Environment to change (default: active)")

	unsetCmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a variable",
		Args:  cobra.ExactArgs(1),
		Run:   runEnvUnset,
	}
	unsetCmd.Flags().StringVarP(&envID, "env", "e", "", "Environment to change (default: active)")

	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write an environment's variables to a YAML file",
		Args:  cobra.ExactArgs(1),
		Run:   runEnvExport,
	}
	exportCmd.Flags().StringVarP(&envID, "env", "e", "", "Environment to export (default: active)")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create an environment from a YAML or dotenv file",
		Long: `Create an environment from a flat key/value YAML file, or from a dotenv
file when the name ends in .env. The environment is named after the file
unless --name is given.`,
		Args: cobra.ExactArgs(1),
		Run:  runEnvImport,
	}
	importCmd.Flags().StringVarP(&envName, "name", "n", "", "Environment name")

	envCmd.AddCommand(listCmd, createCmd, showCmd, deleteCmd, useCmd, setCmd, unsetCmd, exportCmd, importCmd)
	rootCmd.AddCommand(envCmd)
}

func runEnvList(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	envs, active, err := openEnvironments(store).List()
	if err != nil {
		exitOnError("Failed to load environments", err)
	}

	format.PrintEnvironmentList(envs, active)
}

func runEnvCreate(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	env, err := openEnvironments(store).Create(args[0])
	if err != nil {
		exitOnError("Failed to create environment", err)
	}

	format.PrintSuccess(fmt.Sprintf("Environment '%s' created (%s)", env.Name, env.ID))
}

func runEnvShow(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	envs := openEnvironments(store)
	current, err := envs.Active()
	if err != nil {
		exitOnError("Failed to load environment", err)
	}

	env := current
	if len(args) == 1 {
		if env, err = envs.Get(args[0]); err != nil {
			exitOnError("Failed to load environment", err)
		}
	}

	format.PrintEnvironment(env, env.ID == current.ID)
}

func runEnvDelete(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	if err := openEnvironments(store).Delete(args[0]); err != nil {
		exitOnError("Failed to delete environment", err)
	}

	format.PrintSuccess(fmt.Sprintf("Environment '%s' deleted", args[0]))
}

func runEnvUse(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	if err := openEnvironments(store).SetActive(args[0]); err != nil {
		exitOnError("Failed to select environment", err)
	}

	format.PrintSuccess(fmt.Sprintf("Active environment is now '%s'", args[0]))
}

// targetEnvironment returns --env, or the active environment's ID
func targetEnvironment(envs *environment.Store) string {
	if envID != "" {
		return envID
	}
	active, err := envs.Active()
	if err != nil {
		exitOnError("Failed to load environment", err)
	}
	return active.ID
}

func runEnvSet(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	envs := openEnvironments(store)
	id := targetEnvironment(envs)
	if err := envs.SetVariable(id, args[0], args[1]); err != nil {
		exitOnError("Failed to set variable", err)
	}

	format.PrintSuccess(fmt.Sprintf("Set '%s' in environment '%s'", args[0], id))
}

func runEnvUnset(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	envs := openEnvironments(store)
	id := targetEnvironment(envs)
	if err := envs.RemoveVariable(id, args[0]); err != nil {
		exitOnError("Failed to remove variable", err)
	}

	format.PrintSuccess(fmt.Sprintf("Removed '%s' from environment '%s'", args[0], id))
}

func runEnvExport(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	variables, err := openEnvironments(store).Variables(envID)
	if err != nil {
		exitOnError("Failed to load environment", err)
	}

	if err := environment.WriteYAML(args[0], variables); err != nil {
		exitOnError("Failed to export environment", err)
	}

	format.PrintSuccess(fmt.Sprintf("Wrote %d variables to %s", len(variables), args[0]))
}

func runEnvImport(cmd *cobra.Command, args []string) {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		exitOnError("Failed to import environment", err)
	}

	var (
		variables map[string]string
		err       error
	)
	if environment.IsDotenvPath(path) {
		variables, err = environment.ReadDotenv(path)
	} else {
		variables, err = environment.ReadYAML(path)
	}
	if err != nil {
		exitOnError("Failed to import environment", err)
	}

	name := envName
	if name == "" {
		name = environment.NameFromPath(path)
	}

	store := openStore()
	defer store.Close()

	env, err := openEnvironments(store).CreateWithVariables(name, variables)
	if err != nil {
		exitOnError("Failed to import environment", err)
	}

	format.PrintSuccess(fmt.Sprintf("Environment '%s' created with %d variables (%s)", env.Name, len(env.Variables), env.ID))
}
