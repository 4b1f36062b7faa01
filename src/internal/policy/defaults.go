// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package policy

// DefaultImages is the allow-list used when configuration supplies none.
var DefaultImages = []string{
	// base OS
	"ubuntu:latest", "ubuntu:22.04", "ubuntu:20.04",
	"debian:latest", "debian:bullseye", "debian:bookworm",
	"alpine:latest", "alpine:3.18",
	"fedora:latest", "fedora:38",
	"rockylinux:latest", "rockylinux:9",
	// python
	"python:latest", "python:3.11", "python:3.10", "python:3.9",
	"python:3.11-slim", "python:3.10-slim",
	// node
	"node:latest", "node:20", "node:18", "node:16",
	"node:18-alpine", "node:16-alpine",
	// dotnet
	"mcr.microsoft.com/dotnet/sdk:latest", "mcr.microsoft.com/dotnet/sdk:7.0",
	"mcr.microsoft.com/dotnet/sdk:6.0", "mcr.microsoft.com/dotnet/runtime:latest",
	"mcr.microsoft.com/dotnet/aspnet:latest",
	// jvm
	"openjdk:latest", "openjdk:17", "openjdk:11", "openjdk:8",
	"openjdk:17-alpine", "openjdk:11-alpine",
	"maven:latest", "maven:3.9-openjdk-17", "gradle:latest", "gradle:7-jdk17",
	// go
	"golang:latest", "golang:1.21", "golang:1.20", "golang:1.21-alpine", "golang:1.20-alpine",
	// rust
	"rust:latest", "rust:1.70", "rust:1.69", "rust:1.70-alpine", "rust:1.69-alpine",
	// php
	"php:latest", "php:8.2", "php:8.1", "php:8.0", "php:8.2-fpm", "php:8.1-fpm", "composer:latest",
	// ruby
	"ruby:latest", "ruby:3.2", "ruby:3.1", "ruby:3.2-alpine", "ruby:3.1-alpine",
	// databases
	"postgres:latest", "postgres:15", "postgres:14",
	"mysql:latest", "mysql:8", "mysql:5.7",
	"mongo:latest", "mongo:6", "mongo:5",
	"redis:latest", "redis:7", "redis:6",
	"mariadb:latest", "mariadb:10",
	// tooling
	"nginx:latest", "nginx:alpine", "httpd:latest", "httpd:alpine",
	"jenkins/jenkins:latest", "sonarqube:latest", "gitlab/gitlab-ce:latest",
	"amazon/aws-cli:latest", "mcr.microsoft.com/azure-cli:latest", "google/cloud-sdk:latest",
	"theiaide/theia:latest", "codercom/code-server:latest", "linuxserver/code-server:latest",
}

// GPUImages are appended to the allow-list when GPU support is enabled.
var GPUImages = []string{
	"nvidia/cuda:latest",
	"pytorch/pytorch:latest",
	"tensorflow/tensorflow:latest-gpu",
	"nvcr.io/nvidia/pytorch:latest",
	"nvcr.io/nvidia/tensorflow:latest-tf2-py3",
}

// DefaultBrowsers is the browser allow-list used when configuration supplies none.
var DefaultBrowsers = []string{"chromium", "chrome", "firefox"}
