package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"grimm.is/netgen/internal/emit"
	"grimm.is/netgen/internal/i18n"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/session"
)

// RunGet prints the merged configuration as a document. With an id, only
// that definition is printed.
func RunGet(w io.Writer, opts Options, id string) error {
	rt, err := load(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	_, st, err := rt.loaded(rt.cfg.RootDir, "")
	if err != nil {
		return err
	}

	var def *netdef.Definition
	if id != "" {
		d, ok := st.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", session.ErrUnknownDefinition, id)
		}
		def = d
	}
	data, err := emit.Marshal(st, def)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// RunEmit writes the merged configuration, or one definition, as a
// document under the root.
func RunEmit(w io.Writer, opts Options, id, hint string) error {
	rt, err := load(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	s, _, err := rt.loaded(rt.cfg.RootDir, "")
	if err != nil {
		return err
	}
	rel, err := s.Emit(id, rt.cfg.RootDir, hint)
	if err != nil {
		return err
	}
	Printer.Fprintf(w, i18n.MsgEmitted, rel)
	return nil
}

// RunDelete removes a definition from every document that declares it.
func RunDelete(w io.Writer, opts Options, id string) error {
	rt, err := load(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	s, err := rt.session(rt.cfg.RootDir, "")
	if err != nil {
		return err
	}
	if err := s.DeleteConnection(id, rt.cfg.HierarchyRoot()); err != nil {
		return err
	}
	Printer.Fprintf(w, i18n.MsgDeleted, id)
	return nil
}

// RunCheck parses and validates the hierarchy without writing anything.
// Unresolved references are reported but do not fail the check.
func RunCheck(w io.Writer, opts Options, verbose bool) error {
	rt, err := load(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	_, st, err := rt.loaded(rt.cfg.RootDir, "")
	if err != nil {
		return err
	}

	for _, ref := range st.Unresolved() {
		Printer.Fprintf(w, i18n.MsgUnresolved, ref.From, ref.To)
	}
	if verbose {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tBACKEND\tFILE")
		for _, def := range st.Definitions() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.ID, def.Kind, def.Resolved, def.Filename)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	Printer.Fprintf(w, i18n.MsgCheckOK, st.Len())
	return nil
}
