package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symbolNames(syms []*Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Name)
	}
	return out
}

func TestGoAnalyser_ExtractsFunctionsAndCalls(t *testing.T) {
	src := []byte(`package main

import "fmt"

func Greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}

type Server struct{}

func (s *Server) Start() {
	Greet("world")
}
`)
	a := newGoAnalyser()
	result, err := a.Parse(context.Background(), "main.go", src)
	require.NoError(t, err)
	require.False(t, result.HasErrors())

	names := symbolNames(result.Symbols)
	assert.Contains(t, names, "Greet")
	assert.Contains(t, names, "Server")
	assert.Contains(t, names, "Start")

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "fmt", result.Imports[0].Path)

	var sawGreetCall bool
	for _, c := range result.Calls {
		if c.CalleeName == "Greet" {
			sawGreetCall = true
		}
	}
	assert.True(t, sawGreetCall)
}

func TestGoAnalyser_ExportedFlagFromCase(t *testing.T) {
	src := []byte(`package main

func Public() {}
func private() {}
`)
	result, err := newGoAnalyser().Parse(context.Background(), "f.go", src)
	require.NoError(t, err)
	byName := map[string]*Symbol{}
	for _, s := range result.Symbols {
		byName[s.Name] = s
	}
	assert.True(t, byName["Public"].Exported)
	assert.False(t, byName["private"].Exported)
}

func TestPythonAnalyser_ExtractsClassAndMethods(t *testing.T) {
	src := []byte(`
import os
from typing import List

class Repository:
    def __init__(self):
        pass

    def find_by_id(self, id):
        return os.getenv(id)
`)
	result, err := newPythonAnalyser().Parse(context.Background(), "repo.py", src)
	require.NoError(t, err)

	names := symbolNames(result.Symbols)
	assert.Contains(t, names, "Repository")
	assert.Contains(t, names, "find_by_id")

	var methodFound bool
	for _, s := range result.Symbols {
		if s.Name == "find_by_id" {
			methodFound = true
			assert.Equal(t, KindMethod, s.Kind)
			assert.Equal(t, "Repository", s.Receiver)
		}
	}
	assert.True(t, methodFound)

	require.Len(t, result.Imports, 2)
}

func TestTypeScriptAnalyser_ExtractsClassAndImports(t *testing.T) {
	src := []byte(`
import { Injectable } from './decorators';

export class UserService {
  createUser(name: string) {
    return this.repo.save(name);
  }
}
`)
	result, err := newTypeScriptAnalyser().Parse(context.Background(), "user.service.ts", src)
	require.NoError(t, err)

	names := symbolNames(result.Symbols)
	assert.Contains(t, names, "UserService")
	assert.Contains(t, names, "createUser")
	require.Len(t, result.Imports, 1)
	assert.True(t, result.Imports[0].IsRelative)
}

func TestVBNetAnalyser_CallKeywordDoesNotDisruptExtraction(t *testing.T) {
	src := []byte(`Imports System

Module EmployeeModule
    Public Sub LoadEmployee()
        Call EmployeeService.GetEmployee(1)
    End Sub
End Module
`)
	result, err := newVBNetAnalyser().Parse(context.Background(), "EmployeeModule.vb", src)
	require.NoError(t, err)

	names := symbolNames(result.Symbols)
	assert.Contains(t, names, "EmployeeModule")
	assert.Contains(t, names, "LoadEmployee")

	var sawGetEmployee bool
	for _, c := range result.Calls {
		if c.CalleeName == "GetEmployee" && c.Qualifier == "EmployeeService" {
			sawGetEmployee = true
		}
	}
	assert.True(t, sawGetEmployee)
}

func TestRegistry_RegistersAllTenLanguages(t *testing.T) {
	r := NewDefaultRegistry()
	for _, ext := range []string{".go", ".py", ".ts", ".js", ".java", ".cs", ".c", ".cpp", ".rs", ".vb"} {
		a, ok := r.GetByExtension(ext)
		require.Truef(t, ok, "expected analyser registered for %s", ext)
		assert.True(t, a.IsAvailable())
	}
}
