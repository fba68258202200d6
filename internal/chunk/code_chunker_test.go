package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeChunker_ChunkGoFile_ReturnsFunctionChunks(t *testing.T) {
	source := `package main

import "fmt"

func Hello() {
	fmt.Println("Hello")
}

func Goodbye() {
	fmt.Println("Goodbye")
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "main.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	assert.Len(t, chunks, 2, "should return 2 chunks for 2 functions")

	assert.Contains(t, chunks[0].Content, "Hello")
	assert.Equal(t, "function", string(chunks[0].Symbols[0].Type))
	assert.Equal(t, "Hello", chunks[0].Symbols[0].Name)

	assert.Contains(t, chunks[1].Content, "Goodbye")
	assert.Equal(t, "function", string(chunks[1].Symbols[0].Type))
	assert.Equal(t, "Goodbye", chunks[1].Symbols[0].Name)

	for _, chunk := range chunks {
		assert.Contains(t, chunk.Content, `import "fmt"`)
		assert.Contains(t, chunk.Content, "package main")
	}
}

func TestCodeChunker_ChunkGoFile_IncludesDocComments(t *testing.T) {
	source := `package main

import "fmt"

// Greet returns a greeting message for the given name.
func Greet(name string) string {
	if name == "" {
		return "Hello, stranger!"
	}
	return fmt.Sprintf("Hello, %s!", name)
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "main.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "Greet", chunks[0].Symbols[0].Name)
	assert.Contains(t, chunks[0].Symbols[0].DocComment, "Greet returns a greeting")
}

func TestCodeChunker_ChunkTypeScript_IncludesImportContext(t *testing.T) {
	source := `import { Logger } from './logger';
import { Config } from './config';

export class UserService {
	private logger: Logger;

	constructor(config: Config) {
		this.logger = new Logger(config);
	}

	getUser(id: string): User | null {
		this.logger.info('Getting user: ' + id);
		return null;
	}
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "user-service.ts",
		Content:  []byte(source),
		Language: "typescript",
	})

	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 1)

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk.Content, "import { Logger }") &&
			strings.Contains(chunk.Content, "import { Config }") {
			found = true
			break
		}
	}
	assert.True(t, found, "chunks should include import context")
}

func TestCodeChunker_ChunkUnsupportedLanguage_UsesLineFallback(t *testing.T) {
	source := `defmodule HelloWorld do
  def hello do
    IO.puts("Hello, World!")
  end

  def goodbye do
    IO.puts("Goodbye!")
  end
end
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "hello.ex",
		Content:  []byte(source),
		Language: "elixir",
	})

	require.NoError(t, err)
	require.NotEmpty(t, chunks, "should return at least one chunk")

	combined := ""
	for _, chunk := range chunks {
		combined += chunk.Content
	}
	assert.Contains(t, combined, "defmodule HelloWorld")
}

func TestCodeChunker_ChunkTextOnlyLanguage_UsesLineFallback(t *testing.T) {
	source := `{
  "name": "example",
  "version": "1.0.0"
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "package.json",
		Content:  []byte(source),
		Language: "json",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, ContentTypeText, chunks[0].ContentType)
	assert.Empty(t, chunks[0].Symbols, "text-only languages carry no symbol pass")
}

func TestCodeChunker_ChunkLargeFunction_SplitsIntoMultipleChunks(t *testing.T) {
	lines := make([]string, 200)
	for i := 0; i < 200; i++ {
		lines[i] = "\tfmt.Println(\"Line " + string(rune('A'+i%26)) + "\")"
	}

	source := `package main

import "fmt"

func VeryLargeFunction() {
` + strings.Join(lines, "\n") + `
}
`
	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{
		LineBudget: 40, // Lower budget to force splitting
	})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "large.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1, "large function should be split into multiple chunks")

	for _, chunk := range chunks {
		lineSpan := chunk.EndLine - chunk.StartLine + 1
		assert.LessOrEqual(t, lineSpan, 40, "chunk should be within the line budget")
	}
}

// Split symbols register the parent symbol on the first chunk so searches
// for the whole definition still resolve.
func TestCodeChunker_ChunkLargeFunction_RegistersParentSymbol(t *testing.T) {
	lines := make([]string, 200)
	for i := 0; i < 200; i++ {
		lines[i] = "\tfmt.Println(\"Line " + string(rune('A'+i%26)) + "\")"
	}

	source := `package main

import "fmt"

func LargeSearchMethod() {
` + strings.Join(lines, "\n") + `
}
`
	chunker := NewCodeChunkerWithOptions(CodeChunkerOptions{
		LineBudget: 40,
	})
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "search.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.Greater(t, len(chunks), 1, "function should be split into multiple chunks")

	firstChunk := chunks[0]
	require.NotEmpty(t, firstChunk.Symbols, "first chunk should have symbols")

	var hasParent, hasPart bool
	for _, sym := range firstChunk.Symbols {
		if sym.Name == "LargeSearchMethod" {
			hasParent = true
		}
		if sym.Name == "LargeSearchMethod_part1" {
			hasPart = true
		}
	}

	assert.True(t, hasParent, "first chunk should contain parent symbol 'LargeSearchMethod'")
	assert.True(t, hasPart, "first chunk should contain part symbol 'LargeSearchMethod_part1'")

	for i, chunk := range chunks[1:] {
		for _, sym := range chunk.Symbols {
			assert.NotEqual(t, "LargeSearchMethod", sym.Name,
				"chunk %d should not have parent symbol", i+2)
			assert.Contains(t, sym.Name, "_part",
				"chunk %d symbols should be parts", i+2)
		}
	}
}

func TestCodeChunker_ChunkGoFile_ExtractsSymbolMetadata(t *testing.T) {
	source := `package main

func ProcessData(input []byte) ([]byte, error) {
	return input, nil
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "process.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0].Symbols, 1)

	symbol := chunks[0].Symbols[0]
	assert.Equal(t, "ProcessData", symbol.Name)
	assert.Equal(t, SymbolTypeFunction, symbol.Type)
	assert.Equal(t, 3, symbol.StartLine)
	assert.Equal(t, 5, symbol.EndLine)
}

func TestCodeChunker_ChunkGoMethod_ExtractsReceiverContainer(t *testing.T) {
	source := `package main

type Server struct {
	addr string
}

func (s *Server) Start() error {
	return nil
}

func (s *Server) Stop() error {
	return nil
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "server.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	var methodChunks []*Chunk
	for _, chunk := range chunks {
		for _, sym := range chunk.Symbols {
			if sym.Type == SymbolTypeMethod {
				methodChunks = append(methodChunks, chunk)
				break
			}
		}
	}
	require.GreaterOrEqual(t, len(methodChunks), 2, "should have 2 method chunks")

	for _, chunk := range methodChunks {
		for _, sym := range chunk.Symbols {
			if sym.Type == SymbolTypeMethod {
				assert.Contains(t, sym.Container, "Server")
			}
		}
	}
}

func TestCodeChunker_ChunksAreNonOverlapping(t *testing.T) {
	source := `package main

func One() {}

func Two() {}

func Three() {}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "funcs.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].StartLine, chunks[i-1].EndLine,
			"chunk %d should not overlap chunk %d", i, i-1)
	}
}

func TestCodeChunker_Chunk_SetsMetadata(t *testing.T) {
	source := `package main

func Hello() {}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "hello.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)

	chunk := chunks[0]
	assert.Equal(t, "hello.go", chunk.FilePath)
	assert.Equal(t, ContentTypeCode, chunk.ContentType)
	assert.Equal(t, "go", chunk.Language)
	assert.NotZero(t, chunk.CreatedAt)
	assert.NotZero(t, chunk.UpdatedAt)
}

func TestCodeChunker_ChunkPythonClass_SplitsIfLarge(t *testing.T) {
	source := `import logging

class DataProcessor:
    def __init__(self, config):
        self.config = config
        self.logger = logging.getLogger(__name__)

    def process(self, data):
        return data

    def validate(self, data):
        return True
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "processor.py",
		Content:  []byte(source),
		Language: "python",
	})

	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk.Content, "DataProcessor") {
			found = true
			break
		}
	}
	assert.True(t, found, "should contain DataProcessor class")
}

func TestCodeChunker_ChunkPythonClass_MethodsDoNotGetSeparateOverlappingChunks(t *testing.T) {
	source := `class ConnectionPool:
    def __init__(self, size):
        self.size = size

    def acquire(self):
        return None

    def release(self, conn):
        pass
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "database_operations.py",
		Content:  []byte(source),
		Language: "python",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1, "the class and its methods should be one chunk, not one per method")
	assert.Contains(t, chunks[0].Content, "ConnectionPool")
	assert.Contains(t, chunks[0].Content, "acquire")
	assert.Contains(t, chunks[0].Content, "release")
}

func TestCodeChunker_ChunkJavaScript_HandlesArrowFunctions(t *testing.T) {
	source := `const greet = (name) => {
	return 'Hello, ' + name;
};

const farewell = function(name) {
	return 'Goodbye, ' + name;
};
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "greetings.js",
		Content:  []byte(source),
		Language: "javascript",
	})

	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	names := make([]string, 0)
	for _, chunk := range chunks {
		for _, sym := range chunk.Symbols {
			names = append(names, sym.Name)
		}
	}
	assert.Contains(t, names, "greet")
	assert.Contains(t, names, "farewell")
}

func TestCodeChunker_SupportedExtensions(t *testing.T) {
	chunker := NewCodeChunker()
	defer chunker.Close()

	exts := chunker.SupportedExtensions()

	assert.Contains(t, exts, ".go")
	assert.Contains(t, exts, ".ts")
	assert.Contains(t, exts, ".tsx")
	assert.Contains(t, exts, ".js")
	assert.Contains(t, exts, ".jsx")
	assert.Contains(t, exts, ".py")
	assert.Contains(t, exts, ".java")
	assert.Contains(t, exts, ".rs")
}

func TestCodeChunker_EmptyFile_ReturnsNoChunks(t *testing.T) {
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "empty.go",
		Content:  []byte(""),
		Language: "go",
	})

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestCodeChunker_OnlyPackageDecl_FallsBackToLineChunk(t *testing.T) {
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "pkg.go",
		Content:  []byte("package main\n"),
		Language: "go",
	})

	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestCodeChunker_ChunkTypeScriptInterface(t *testing.T) {
	source := `export interface User {
	id: string;
	name: string;
	email: string;
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "types.ts",
		Content:  []byte(source),
		Language: "typescript",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "User", chunks[0].Symbols[0].Name)
	assert.Equal(t, SymbolTypeInterface, chunks[0].Symbols[0].Type)
}

func TestCodeChunker_ContentIncludesFileContext(t *testing.T) {
	source := `package main

import (
	"fmt"
	"strings"
)

func Hello(name string) {
	fmt.Println(strings.ToUpper(name))
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "hello.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Contains(t, chunks[0].Content, "package main")
	assert.Contains(t, chunks[0].Content, "import")
	assert.Contains(t, chunks[0].Content, "func Hello")
}

func TestCodeChunker_ChunkGoFile_ExtractsConstants(t *testing.T) {
	source := `package config

// DefaultTimeout is the default request timeout in seconds.
const DefaultTimeout = 30

// MaxRetries is the maximum number of retry attempts.
const MaxRetries = 3
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "config.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.NotEmpty(t, chunks, "should extract constants as chunks")

	var constNames []string
	for _, chunk := range chunks {
		for _, sym := range chunk.Symbols {
			if sym.Type == SymbolTypeConstant {
				constNames = append(constNames, sym.Name)
			}
		}
	}

	assert.Contains(t, constNames, "DefaultTimeout", "should extract DefaultTimeout constant")
	assert.Contains(t, constNames, "MaxRetries", "should extract MaxRetries constant")
}

func TestCodeChunker_ChunkGoFile_ExtractsGroupedConstants(t *testing.T) {
	source := `package status

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "status.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.NotEmpty(t, chunks, "should extract grouped constants")

	var constChunk *Chunk
	for _, chunk := range chunks {
		for _, sym := range chunk.Symbols {
			if sym.Type == SymbolTypeConstant {
				constChunk = chunk
				break
			}
		}
		if constChunk != nil {
			break
		}
	}

	require.NotNil(t, constChunk, "should have a constant chunk")
	assert.Contains(t, constChunk.Content, "StatusPending")
	assert.Contains(t, constChunk.Content, "StatusFailed")
}

func TestCodeChunker_ChunkGoFile_ExtractsVariables(t *testing.T) {
	source := `package config

// DefaultConfig holds the default configuration values.
var DefaultConfig = Config{
	Timeout:    30,
	MaxRetries: 3,
	BaseURL:    "https://api.example.com",
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "config.go",
		Content:  []byte(source),
		Language: "go",
	})

	require.NoError(t, err)
	require.NotEmpty(t, chunks, "should extract variables as chunks")

	var found bool
	for _, chunk := range chunks {
		for _, sym := range chunk.Symbols {
			if sym.Type == SymbolTypeVariable && sym.Name == "DefaultConfig" {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "should extract DefaultConfig variable")
}

func TestCodeChunker_ChunkTypeScript_ExtractsConstants(t *testing.T) {
	source := `export const API_CONFIG = {
	baseUrl: 'https://api.example.com',
	timeout: 30000,
	retryAttempts: 3,
	headers: {
		'Content-Type': 'application/json',
	},
};

export const ERROR_MESSAGES = {
	NETWORK_ERROR: 'Failed to connect to the server',
	AUTH_ERROR: 'Authentication failed',
	NOT_FOUND: 'Resource not found',
};
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "config.ts",
		Content:  []byte(source),
		Language: "typescript",
	})

	require.NoError(t, err)
	require.NotEmpty(t, chunks, "should extract TypeScript constants")

	var constNames []string
	for _, chunk := range chunks {
		for _, sym := range chunk.Symbols {
			if sym.Type == SymbolTypeConstant {
				constNames = append(constNames, sym.Name)
			}
		}
	}

	assert.Contains(t, constNames, "API_CONFIG", "should extract API_CONFIG constant")
	assert.Contains(t, constNames, "ERROR_MESSAGES", "should extract ERROR_MESSAGES constant")
}

func TestCodeChunker_ChunkRustFile_ExtractsStructAndTrait(t *testing.T) {
	source := `struct Point {
    x: i32,
    y: i32,
}

trait Shape {
    fn area(&self) -> f64;
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "shapes.rs",
		Content:  []byte(source),
		Language: "rust",
	})

	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var sawStruct, sawTrait bool
	for _, chunk := range chunks {
		for _, sym := range chunk.Symbols {
			if sym.Name == "Point" {
				sawStruct = true
			}
			if sym.Name == "Shape" {
				sawTrait = true
			}
		}
	}
	assert.True(t, sawStruct, "should extract Point struct")
	assert.True(t, sawTrait, "should extract Shape trait")
}

func BenchmarkCodeChunker_ChunkGoFile(b *testing.B) {
	source := `package main

import "fmt"

func One() { fmt.Println("1") }
func Two() { fmt.Println("2") }
func Three() { fmt.Println("3") }
func Four() { fmt.Println("4") }
func Five() { fmt.Println("5") }
func Six() { fmt.Println("6") }
func Seven() { fmt.Println("7") }
func Eight() { fmt.Println("8") }
func Nine() { fmt.Println("9") }
func Ten() { fmt.Println("10") }
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	input := &FileInput{
		Path:     "funcs.go",
		Content:  []byte(source),
		Language: "go",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = chunker.Chunk(context.Background(), input)
	}
}
