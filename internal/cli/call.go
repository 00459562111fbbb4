package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ecoai-civic/ecoai-client/internal/gateway"
)

func newCallCommand(rt *runtime) *cobra.Command {
	var (
		data   string
		fields []string
		files  []string
	)
	cmd := &cobra.Command{
		Use:   "call <method> <path>",
		Short: "Send an authenticated request to the remote API",
		Long: `Send one request through the authenticated gateway.

With --field or --file the body is sent as multipart form data. With --data it
is sent as JSON. A rejected credential is forgotten.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := gateway.Request{Method: strings.ToUpper(args[0]), Path: args[1]}
			switch {
			case len(fields) > 0 || len(files) > 0:
				form, closeFiles, err := buildForm(fields, files)
				if err != nil {
					return err
				}
				defer closeFiles()
				req.Body = form
			case data != "":
				if !json.Valid([]byte(data)) {
					return errors.New("--data is not valid JSON")
				}
				req.Body = json.RawMessage(data)
			}

			resp, err := rt.client.Do(cmd.Context(), req)
			if err != nil {
				if errors.Is(err, gateway.ErrUnauthorized) {
					return errors.New("session expired, log in again")
				}
				return err
			}
			defer resp.Body.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", resp.Status)
			if _, err := io.Copy(out, resp.Body); err != nil {
				return err
			}
			fmt.Fprintln(out)
			if !gateway.OK(resp) {
				return fmt.Errorf("request failed with status %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&fields, "field", "F", nil, "form field key=value (repeatable)")
	cmd.Flags().StringArrayVar(&files, "file", nil, "form file field=path (repeatable)")
	return cmd
}

func buildForm(fields, files []string) (*gateway.Form, func(), error) {
	form := gateway.NewForm()
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	for _, kv := range fields {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("invalid --field %q, want key=value", kv)
		}
		form.Set(key, value)
	}
	for _, spec := range files {
		field, path, ok := strings.Cut(spec, "=")
		if !ok || field == "" || path == "" {
			closeAll()
			return nil, nil, fmt.Errorf("invalid --file %q, want field=path", spec)
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		form.Attach(field, filepath.Base(path), f)
	}
	return form, closeAll, nil
}
