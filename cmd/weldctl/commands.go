package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigkaa/weldregistry/internal/app"
	"github.com/bigkaa/weldregistry/internal/config"
	"github.com/bigkaa/weldregistry/internal/domain/model"
	"github.com/bigkaa/weldregistry/internal/notify"
	"github.com/bigkaa/weldregistry/internal/service"
)

// env — сервисы, собранные для одной команды.
type env struct {
	storage *app.Storage
	commits *service.CommitLog
	catalog *service.CatalogService
	backups *service.BackupService
	logger  *slog.Logger
}

func (e *env) close() {
	if e.storage != nil {
		_ = e.storage.Close()
	}
}

// openEnv собирает сервисы по конфигурации окружения. Логи идут в stderr.
func openEnv(ctx context.Context, stderr io.Writer) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("конфигурация: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	e := &env{storage: storage, logger: logger}

	notifier := notify.NewLogNotifier(logger)
	e.commits, err = service.NewCommitLog(ctx, storage.Store, cfg.CommitMax, cfg.CommitAuthor, logger)
	if err != nil {
		e.close()
		return nil, err
	}
	e.catalog = service.NewCatalogService(app.NewFetcher(cfg, logger), e.commits, notifier, logger)
	e.catalog.SetArchive(service.NewArchiveService(storage.Store, logger))
	e.backups, err = service.NewBackupService(ctx, storage.Store, e.catalog, e.commits, notifier, cfg.BackupMax, logger)
	if err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

// withEnv оборачивает RunE: открывает окружение и закрывает его после команды.
func withEnv(run func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.close()
		return run(cmd, args, e)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "weldctl",
		Short:         "Обслуживание реестра сварочного производства",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBackupsCmd(), newCommitsCmd(), newExportCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Версия утилиты",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Version)
		},
	}
}

func newBackupsCmd() *cobra.Command {
	backupsCmd := &cobra.Command{
		Use:   "backups",
		Short: "Резервные копии",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Список резервных копий от новых к старым",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tДАТА\tЗАПИСЕЙ\tОПИСАНИЕ")
			for _, info := range e.backups.List() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					info.ID, info.Timestamp.Local().Format("02.01.2006 15:04:05"), info.TotalRecords, info.Description)
			}
			return w.Flush()
		}),
	}

	var description string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Загрузить реестры из источника и создать резервную копию",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			if _, err := e.catalog.LoadAll(cmd.Context()); err != nil {
				return err
			}
			info, err := e.backups.Create(cmd.Context(), description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Резервная копия создана: %s (%d записей)\n", info.ID, info.TotalRecords)
			return nil
		}),
	}
	createCmd.Flags().StringVarP(&description, "description", "d", "", "Описание резервной копии")

	var outDir string
	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Сохранить резервную копию в файл",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			file, err := e.backups.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeFile(cmd, outDir, file)
		}),
	}
	exportCmd.Flags().StringVarP(&outDir, "output", "o", ".", "Каталог для файла")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Удалить резервную копию",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			if err := e.backups.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Резервная копия удалена: %s\n", args[0])
			return nil
		}),
	}

	backupsCmd.AddCommand(listCmd, createCmd, exportCmd, deleteCmd)
	return backupsCmd
}

func newCommitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commits",
		Short: "Журнал изменений от новых к старым",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ДАТА\tАВТОР\tСООБЩЕНИЕ")
			for _, c := range e.commits.History() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Timestamp.Local().Format(time.DateTime), c.Author, c.Message)
			}
			return w.Flush()
		}),
	}
}

func newExportCmd() *cobra.Command {
	var (
		outDir   string
		category string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Загрузить реестры из источника и выгрузить в файл",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			if _, err := e.catalog.LoadAll(cmd.Context()); err != nil {
				return err
			}

			var (
				file service.ExportFile
				err  error
			)
			if category == "" {
				file, err = e.catalog.ExportAll(cmd.Context())
			} else {
				cat, perr := model.ParseCategory(category)
				if perr != nil {
					return perr
				}
				file, err = e.catalog.ExportCategory(cmd.Context(), cat)
			}
			if err != nil {
				return err
			}
			return writeFile(cmd, outDir, file)
		}),
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Каталог для файла")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Реестр: wire, welders, specialists, techprocess (по умолчанию все)")
	return cmd
}

// writeFile сохраняет выгрузку в каталог dir под её именем.
func writeFile(cmd *cobra.Command, dir string, file service.ExportFile) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать каталог %s: %w", dir, err)
	}
	p := filepath.Join(dir, file.Name)
	if err := os.WriteFile(p, file.Data, 0o600); err != nil {
		return fmt.Errorf("запись %s: %w", p, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Файл сохранён: %s (%d записей)\n", p, file.Records)
	return nil
}
