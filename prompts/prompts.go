package prompts

import _ "embed"

// Embedded prompt files

//go:embed rag_system.txt
var ragSystem string

//go:embed document_qa.txt
var documentQA string

func RAGSystem() string  { return ragSystem }
func DocumentQA() string { return documentQA }
