package cmd

import "testing"

func TestGraphRemoveKeepsMetadataByDefault(t *testing.T) {
	f := graphRemoveCmd.Flags().Lookup("keep-metadata")
	if f == nil {
		t.Fatal("keep-metadata flag not registered")
	}
	if f.DefValue != "true" {
		t.Errorf("keep-metadata default = %s, want true", f.DefValue)
	}
}
