// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"cmid/internal/lsp"
)

const lsName = "cmid" // Name identifier for the language server

var (
	version = "0.0.1"        // Server version
	handler protocol.Handler // Protocol handler instance (wired up below)
)

func main() {
	// Configure debug logging (1 = debug level, nil = default logger)
	commonlog.Configure(1, nil)

	cmidHandler := lsp.NewCmidHandler()

	// Wire up the handler with specific LSP method implementations
	handler = protocol.Handler{
		Initialize:                     cmidHandler.Initialize,
		Initialized:                    cmidHandler.Initialized,
		Shutdown:                       cmidHandler.Shutdown,
		SetTrace:                       cmidHandler.SetTrace,
		TextDocumentDidOpen:            cmidHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           cmidHandler.TextDocumentDidClose,
		TextDocumentDidChange:          cmidHandler.TextDocumentDidChange,
		TextDocumentSemanticTokensFull: cmidHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Printf("Starting cmid LSP server %s...", version)

	// Serve over standard input/output (used by most editors for LSP)
	err := s.RunStdio()
	if err != nil {
		log.Println("Error starting cmid LSP server:", err)
		os.Exit(1)
	}
}
